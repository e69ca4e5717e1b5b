package combat

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maicraft/maicraft-go/pkg/bridge"
	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/env"
	"github.com/maicraft/maicraft-go/pkg/events"
	"github.com/maicraft/maicraft-go/pkg/journal"
	"github.com/maicraft/maicraft-go/pkg/world"
)

// stubLLM scripts one reply for every prompt and records the prompts.
type stubLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Chat(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *stubLLM) Vision(_ context.Context, prompt, _ string) (string, error) {
	return s.Chat(context.Background(), prompt)
}

func (s *stubLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type responderFixture struct {
	responder *Responder
	tools     *stubToolCaller
	brain     *stubLLM
	fast      *stubLLM
	movement  *env.MovementMonitor
	thinking  *journal.ThinkingLog
	chat      *journal.ChatHistory
	tasks     *journal.TaskList
}

func newResponderFixture() *responderFixture {
	environment := env.New()
	f := &responderFixture{
		tools:    &stubToolCaller{},
		brain:    &stubLLM{},
		fast:     &stubLLM{},
		movement: env.NewMovementMonitor(environment),
		thinking: journal.NewThinkingLog(""),
		chat:     journal.NewChatHistory(10),
		tasks:    journal.NewTaskList(""),
	}
	bot := config.BotConfig{Username: "Mai", AlternateNames: []string{"mai", "麦"}, Goal: "挖到钻石"}
	cfg := config.ThreatDetectionConfig{EnableDamageInterrupt: true}
	f.responder = NewResponder(bot, cfg, ResponderDeps{
		Tools:    f.tools,
		Brain:    f.brain,
		Fast:     f.fast,
		Env:      environment,
		Movement: f.movement,
		Blocks:   world.NewCache(),
		Thinking: f.thinking,
		Tasks:    f.tasks,
		Chat:     f.chat,
	})
	f.responder.ctx = context.Background()
	return f
}

func hurtEvent(victim string, health float64, source map[string]any) events.GameEvent {
	data := map[string]any{
		"entity": map[string]any{"username": victim, "health": health},
	}
	if source != nil {
		data["source"] = source
	}
	return events.NewRegistry().CreateFromRaw(events.RawEvent{
		Type:      events.TypeEntityHurt,
		GameTick:  100,
		Timestamp: 1700000000000,
		Data:      data,
	})
}

func TestNegotiationPromptContainsAttackLine(t *testing.T) {
	f := newResponderFixture()
	f.chat.Add("你好", "Alice", journal.ChatKindPlayer)

	prompt := f.responder.negotiationPrompt("Alice")
	assert.Contains(t, prompt, "[刚刚] Alice 攻击了你")
	assert.Contains(t, prompt, "挖到钻石")
	assert.Contains(t, prompt, "Alice: 你好")
	assert.Contains(t, prompt, "## 当前状态")
	assert.Contains(t, prompt, "## 背包")
}

func TestPlayerAttackTriggersNegotiation(t *testing.T) {
	f := newResponderFixture()
	f.brain.reply = "Alice 你为什么打我？"

	err := f.responder.onEntityHurt(hurtEvent("Mai", 10,
		map[string]any{"type": "player", "username": "Alice"}))
	require.NoError(t, err)

	reason, ok := f.movement.ConsumeInterrupt()
	require.True(t, ok)
	assert.Equal(t, ReasonDamage, reason)

	assert.Contains(t, f.brain.lastPrompt(), "[刚刚] Alice 攻击了你")

	chats := f.tools.callsFor(bridge.ToolChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "Alice 你为什么打我？", chats[0].Args["message"])

	recent := f.chat.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, journal.ChatKindBot, recent[0].Kind)
	assert.Equal(t, "Mai", recent[0].Sender)
}

func TestEmptyNegotiationReplyFallsBack(t *testing.T) {
	f := newResponderFixture()
	f.brain.reply = ""

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 10,
		map[string]any{"type": "player", "username": "Alice"})))

	chats := f.tools.callsFor(bridge.ToolChat)
	require.Len(t, chats, 1)
	msg, _ := chats[0].Args["message"].(string)
	assert.Contains(t, msg, "Alice")
	assert.NotEmpty(t, strings.TrimSpace(msg))
}

func TestCriticalHealthTriggersDistress(t *testing.T) {
	f := newResponderFixture()
	f.fast.reply = "救命！来人啊！"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 2,
		map[string]any{"type": "player", "username": "Alice"})))

	reason, ok := f.movement.ConsumeInterrupt()
	require.True(t, ok)
	assert.Equal(t, ReasonCriticalHealth, reason)

	chats := f.tools.callsFor(bridge.ToolChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "救命！来人啊！", chats[0].Args["message"])

	var noticed bool
	for _, e := range f.thinking.Entries() {
		if e.Kind == journal.KindNotice && strings.Contains(e.Text, "危急") {
			noticed = true
		}
	}
	assert.True(t, noticed)
}

func TestHostileAttackCounterattacks(t *testing.T) {
	f := newResponderFixture()

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 15,
		map[string]any{"type": "hostile", "name": "zombie"})))

	kills := f.tools.callsFor(bridge.ToolKillMob)
	require.Len(t, kills, 1)
	assert.Equal(t, "zombie", kills[0].Args["mob"])
	assert.Empty(t, f.tools.callsFor(bridge.ToolChat), "successful counterattack should not chat")

	reason, ok := f.movement.ConsumeInterrupt()
	require.True(t, ok)
	assert.Equal(t, ReasonDamage, reason)
}

func TestWeakBotCallsForHelpInsteadOfFighting(t *testing.T) {
	f := newResponderFixture()
	f.fast.reply = "有僵尸追我，快来帮忙！"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 5,
		map[string]any{"type": "hostile", "name": "zombie"})))

	assert.Empty(t, f.tools.callsFor(bridge.ToolKillMob))
	chats := f.tools.callsFor(bridge.ToolChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "有僵尸追我，快来帮忙！", chats[0].Args["message"])
}

func TestFailedCounterattackRecordsStrategy(t *testing.T) {
	f := newResponderFixture()
	f.tools.results = map[string]bridge.Result{
		bridge.ToolKillMob: {OK: false, Reason: "目标太远"},
	}
	f.brain.reply = "先撤退到高处再用弓"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 15,
		map[string]any{"type": "hostile", "name": "skeleton"})))

	var recorded bool
	for _, e := range f.thinking.Entries() {
		if e.Kind == journal.KindThinking && strings.Contains(e.Text, "先撤退到高处再用弓") {
			recorded = true
		}
	}
	assert.True(t, recorded, "fallback strategy should land in the thinking log")
}

func TestStrategyChatLineIsSent(t *testing.T) {
	f := newResponderFixture()
	f.tools.results = map[string]bridge.Result{
		bridge.ToolKillMob: {OK: false, Reason: "目标太远"},
	}
	f.brain.reply = "chat message: 有骷髅在追我，快来帮忙！"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 15,
		map[string]any{"type": "hostile", "name": "skeleton"})))

	chats := f.tools.callsFor(bridge.ToolChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "有骷髅在追我，快来帮忙！", chats[0].Args["message"])
}

func TestStrategyKillMobLineRetargets(t *testing.T) {
	f := newResponderFixture()
	f.tools.results = map[string]bridge.Result{
		bridge.ToolKillMob: {OK: false, Reason: "目标太远"},
	}
	f.brain.reply = "kill_mob mob: zombie"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 15,
		map[string]any{"type": "hostile", "name": "skeleton"})))

	kills := f.tools.callsFor(bridge.ToolKillMob)
	require.Len(t, kills, 2)
	assert.Equal(t, "skeleton", kills[0].Args["mob"])
	assert.Equal(t, "zombie", kills[1].Args["mob"])
}

func TestUnknownSourceUsesGenericNegotiation(t *testing.T) {
	f := newResponderFixture()
	f.brain.reply = "谁在打我？"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Mai", 12, nil)))

	assert.Contains(t, f.brain.lastPrompt(), "[刚刚] "+unknownAttacker+" 攻击了你")
	require.Len(t, f.tools.callsFor(bridge.ToolChat), 1)
}

func TestNonBotVictimIgnored(t *testing.T) {
	f := newResponderFixture()

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("Steve", 5,
		map[string]any{"type": "player", "username": "Alice"})))

	assert.False(t, f.movement.Interrupted())
	assert.Empty(t, f.tools.calls)
}

func TestAlternateNamesMatchVictim(t *testing.T) {
	f := newResponderFixture()
	f.brain.reply = "别打我"

	require.NoError(t, f.responder.onEntityHurt(hurtEvent("麦", 12,
		map[string]any{"type": "player", "username": "Alice"})))

	assert.True(t, f.movement.Interrupted())
}

func TestStartRespectsDamageInterruptFlag(t *testing.T) {
	emitter := events.NewEmitter(events.EmitterConfig{})

	disabled := NewResponder(config.BotConfig{Username: "Mai"},
		config.ThreatDetectionConfig{EnableDamageInterrupt: false}, ResponderDeps{})
	require.NoError(t, disabled.Start(context.Background(), emitter))
	assert.Zero(t, emitter.ListenerCount(events.TypeEntityHurt))

	enabled := NewResponder(config.BotConfig{Username: "Mai"},
		config.ThreatDetectionConfig{EnableDamageInterrupt: true}, ResponderDeps{})
	require.NoError(t, enabled.Start(context.Background(), emitter))
	assert.Equal(t, 1, emitter.ListenerCount(events.TypeEntityHurt))
	enabled.Stop()
	assert.Zero(t, emitter.ListenerCount(events.TypeEntityHurt))
}
