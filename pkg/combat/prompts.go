package combat

import (
	"fmt"
	"strings"
)

// Prompt view distances for the nearby-block section plus the chat and
// event tail lengths.
const (
	promptBlockFullRange   = 8.0
	promptBlockVisionRange = 16.0
	promptChatLines        = 10
	promptEventLines       = 8
)

func (r *Responder) botName() string {
	if r.bot.Username != "" {
		return r.bot.Username
	}
	if r.deps.Env != nil {
		if name := r.deps.Env.Username(); name != "" {
			return name
		}
	}
	return "Mai"
}

func (r *Responder) goal() string {
	if r.deps.Tasks != nil {
		if g := r.deps.Tasks.Goal(); g != "" {
			return g
		}
	}
	return r.bot.Goal
}

// negotiationPrompt composes the full context the model needs to answer an
// attacking player: goal, tasks, live status, surroundings, and the chat
// tail led by the attack itself.
func (r *Responder) negotiationPrompt(attacker string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是 Minecraft 玩家 %s。刚刚 %s 攻击了你，你需要用一句聊天消息回应对方，化解冲突或弄清对方意图。\n\n", r.botName(), attacker)
	if goal := r.goal(); goal != "" {
		fmt.Fprintf(&b, "## 目标\n%s\n\n", goal)
	}
	if r.deps.Tasks != nil {
		fmt.Fprintf(&b, "## 任务列表\n%s\n\n", r.deps.Tasks.Render())
	}
	if r.deps.Env != nil {
		fmt.Fprintf(&b, "## 当前状态\n%s\n\n", r.deps.Env.StatusText())
		fmt.Fprintf(&b, "## 背包\n%s\n\n", r.deps.Env.InventoryText())
		if r.deps.Blocks != nil {
			if pos, ok := r.deps.Env.Position(); ok {
				fmt.Fprintf(&b, "## 附近方块\n%s\n\n",
					r.deps.Blocks.NearbyBlocksText(pos, promptBlockFullRange, promptBlockVisionRange))
			}
		}
		fmt.Fprintf(&b, "## 附近实体\n%s\n\n", r.deps.Env.NearbyEntitiesText())
	}
	b.WriteString("## 最近聊天\n")
	fmt.Fprintf(&b, "[刚刚] %s 攻击了你\n", attacker)
	if r.deps.Chat != nil {
		b.WriteString(r.deps.Chat.RenderRecent(promptChatLines))
		b.WriteString("\n")
	}
	b.WriteString("\n直接输出要发送的聊天内容，不要任何解释，保持简短。")
	return b.String()
}

// distressPrompt asks the fast model for a one-line help call.
func (r *Responder) distressPrompt(health float64, attacker string) string {
	who := attacker
	if who == "" {
		who = "未知敌人"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "你是 Minecraft 玩家 %s，生命值只剩 %.1f，正被 %s 攻击。\n", r.botName(), health, who)
	if r.deps.Env != nil {
		fmt.Fprintf(&b, "%s\n", r.deps.Env.StatusText())
	}
	b.WriteString("\n用一句简短的中文聊天消息向附近的玩家求救。直接输出消息内容。")
	return b.String()
}

// strategyPrompt asks for a fallback plan after a failed counterattack.
func (r *Responder) strategyPrompt(mob string, health float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是 Minecraft 玩家 %s。对 %s 的反击失败了，当前生命值 %.1f。\n\n", r.botName(), mob, health)
	if r.deps.Env != nil {
		fmt.Fprintf(&b, "## 当前状态\n%s\n\n", r.deps.Env.StatusText())
		fmt.Fprintf(&b, "## 背包\n%s\n\n", r.deps.Env.InventoryText())
		fmt.Fprintf(&b, "## 最近事件\n%s\n\n", r.deps.Env.RecentEventsText(promptEventLines))
	}
	b.WriteString("第一行给出下一步动作，格式: kill_mob mob: <名字> 或 chat message: <内容>。")
	b.WriteString("如果两者都不合适，直接输出一句策略说明（撤退、筑墙、换武器等）。")
	return b.String()
}
