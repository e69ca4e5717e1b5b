package env

import (
	"strings"
)

// Tool categories are recognized by name suffix, materials by name prefix.
// Material ranks run wooden=1 .. netherite=6; 0 means none owned.
var toolSuffixes = []string{"_pickaxe", "_axe", "_shovel", "_hoe", "_sword"}

var materialRank = map[string]int{
	"wooden":    1,
	"golden":    2,
	"stone":     3,
	"iron":      4,
	"diamond":   5,
	"netherite": 6,
}

var toolCategoryNames = map[string]string{
	"_pickaxe": "镐",
	"_axe":     "斧",
	"_shovel":  "锹",
	"_hoe":     "锄",
	"_sword":   "剑",
}

// Advisory strings per category, indexed by the best owned material rank.
// Index 0 is the "none owned" advice.
var toolAdviceLadder = map[string][7]string{
	"_pickaxe": {
		"你还没有镐。先收集原木合成木镐 (wooden_pickaxe)，否则无法挖掘石头和矿物。",
		"木镐只能挖石头、煤矿。挖 3 个圆石尽快升级成石镐。",
		"金镐挖掘速度快但耐久很低，能挖的矿物和木镐一样。建议再做一把石镐或铁镐。",
		"石镐可以挖铁矿和青金石。找到铁矿冶炼成铁锭后升级铁镐。",
		"铁镐可以挖钻石、金矿、红石。备好食物和火把，去深层 (y≈-58) 找钻石。",
		"钻石镐可以挖黑曜石和远古残骸。收集黑曜石可以搭建下界传送门。",
		"下界合金镐已是最高级的镐，注意耐久并考虑附魔。",
	},
	"_axe": {
		"你还没有斧。木斧能显著加快砍树速度，先合成一把。",
		"木斧可用，但石斧只需 3 个圆石，尽快升级。",
		"金斧速度快耐久低，尽量保留石斧或铁斧日常用。",
		"石斧砍树已经够快，铁斧是下一个顺手的升级。",
		"铁斧很耐用，也能当应急武器。",
		"钻石斧兼顾伐木与战斗，保持耐久。",
		"下界合金斧已是最高级的斧。",
	},
	"_shovel": {
		"你还没有锹。挖沙土、砂砾很慢，建议合成木锹。",
		"木锹可用，石锹升级成本很低。",
		"金锹耐久低，注意备用。",
		"石锹挖土已经够用，铁锹更耐久。",
		"铁锹耐久不错，可以放心清理沙砾。",
		"钻石锹速度极快。",
		"下界合金锹已是最高级的锹。",
	},
	"_hoe": {
		"你还没有锄。开垦耕地需要锄，准备种田时合成一把。",
		"木锄足够开垦小块耕地。",
		"金锄耐久低，仅作应急。",
		"石锄适合扩大农田。",
		"铁锄耐久充足，农业无忧。",
		"钻石锄主要用于快速收割灵魂沙等方块。",
		"下界合金锄已是最高级的锄。",
	},
	"_sword": {
		"你还没有剑。夜晚或洞穴里没有武器很危险，先合成木剑。",
		"木剑伤害有限，尽快升级石剑。",
		"金剑伤害等同木剑且耐久低，建议尽快换掉。",
		"石剑可以应付常见敌对生物。",
		"铁剑伤害可观，配合盾牌更安全。",
		"钻石剑是可靠的主武器，考虑附魔锋利。",
		"下界合金剑已是最高伤害的剑。",
	},
}

// BestToolLevels scans items and returns the best owned material rank per
// tool suffix (0 when the category is absent).
func BestToolLevels(items []Item) map[string]int {
	best := make(map[string]int, len(toolSuffixes))
	for _, suffix := range toolSuffixes {
		best[suffix] = 0
	}
	for _, item := range items {
		for _, suffix := range toolSuffixes {
			if !strings.HasSuffix(item.Name, suffix) {
				continue
			}
			material := strings.TrimSuffix(item.Name, suffix)
			if rank, ok := materialRank[material]; ok && rank > best[suffix] {
				best[suffix] = rank
			}
		}
	}
	return best
}

// ToolAdvice renders one advisory paragraph per tool category keyed by the
// best owned material level. The text is purely advisory prompt context.
func ToolAdvice(items []Item) string {
	best := BestToolLevels(items)
	var b strings.Builder
	b.WriteString("工具建议:\n")
	for _, suffix := range toolSuffixes {
		level := best[suffix]
		b.WriteString("- ")
		b.WriteString(toolCategoryNames[suffix])
		b.WriteString(": ")
		b.WriteString(toolAdviceLadder[suffix][level])
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
