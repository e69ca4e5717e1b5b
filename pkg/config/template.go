package config

import (
	"fmt"
	"strings"
	"text/template"
)

// templateVersion is the config schema version this build writes. Bump it
// when template keys change so existing files get migrated.
const templateVersion = 3

// configTemplate is the on-disk config file. Comment blocks survive
// migration because the file is always regenerated from this text with the
// merged values substituted.
const configTemplate = `# maicraft 配置文件
# 缺失时会从内置模板重新生成; 旧版本会自动迁移并保留 .backup 备份

[inner]
# 配置文件版本, 由程序维护, 请勿手动修改
version = {{.Inner.Version}}

[logging]
# 日志级别: DEBUG | INFO | WARN | ERROR
level = "{{.Logging.Level}}"
# 输出格式: text | json
format = "{{.Logging.Format}}"

[llm]
# 主模型 (OpenAI 兼容接口), 用于规划、谈判与决策
base_url = "{{.LLM.BaseURL}}"
api_key = "{{.LLM.APIKey}}"
model = "{{.LLM.Model}}"
temperature = {{float .LLM.Temperature}}
max_tokens = {{.LLM.MaxTokens}}
# 单次请求超时 (秒)
timeout = {{.LLM.Timeout}}

[llm_fast]
# 快速模型, 用于求救喊话等低延迟短回复场景
base_url = "{{.LLMFast.BaseURL}}"
api_key = "{{.LLMFast.APIKey}}"
model = "{{.LLMFast.Model}}"
temperature = {{float .LLMFast.Temperature}}
max_tokens = {{.LLMFast.MaxTokens}}
timeout = {{.LLMFast.Timeout}}

[visual]
# 是否启用基于截图的环境概览
enable = {{.Visual.Enable}}

[vlm]
# 视觉模型, 仅在 visual.enable = true 时使用
base_url = "{{.VLM.BaseURL}}"
api_key = "{{.VLM.APIKey}}"
model = "{{.VLM.Model}}"
temperature = {{float .VLM.Temperature}}
max_tokens = {{.VLM.MaxTokens}}
timeout = {{.VLM.Timeout}}

[bot]
# 游戏内的机器人用户名
username = "{{.Bot.Username}}"
# 聊天中会被当作在叫它的别名
alternate_names = {{strs .Bot.AlternateNames}}
# 长期目标, 也可通过 WebSocket 接口修改
goal = "{{.Bot.Goal}}"

[game]
# 游戏桥接进程的连接方式: stdio | http | sse
transport = "{{.Game.Transport}}"
# transport = "stdio" 时启动的命令及参数
command = "{{.Game.Command}}"
args = {{strs .Game.Args}}
# transport = "http" / "sse" 时的桥接地址
url = "{{.Game.URL}}"
# 单次工具调用超时 (秒)
timeout = {{.Game.Timeout}}
# 环境轮询周期 (毫秒)
poll_interval_ms = {{.Game.PollIntervalMS}}
# 实体查询半径 (格)
entity_range = {{float .Game.EntityRange}}
# 持久化文件目录
data_dir = "{{.Game.DataDir}}"

[api]
# WebSocket / REST 服务开关与监听地址
enabled = {{flag .API.Enabled}}
host = "{{.API.Host}}"
port = {{.API.Port}}
# 服务端心跳周期与超时 (秒)
heartbeat_interval = {{.API.HeartbeatInterval}}
heartbeat_timeout = {{.API.HeartbeatTimeout}}

[threat_detection]
# 威胁检测与战斗模式
enabled = {{flag .ThreatDetection.Enabled}}
# 威胁检测半径 (格)
threat_detection_range = {{float .ThreatDetection.Range}}
# 低于该距离的敌对生物视为仍在威胁范围内
min_distance = {{float .ThreatDetection.MinDistance}}
# 战斗模式最长持续时间 (秒)
threat_timeout = {{.ThreatDetection.ThreatTimeout}}
# 攻击循环周期 (毫秒)
attack_interval_ms = {{.ThreatDetection.AttackIntervalMS}}
# 同名目标连续失败上限, 超过后跳过
max_attack_attempts = {{.ThreatDetection.MaxAttackAttempts}}
# 是否在受伤时打断当前动作并触发受伤响应
enable_damage_interrupt = {{.ThreatDetection.EnableDamageInterrupt}}
`

var configTmpl = template.Must(template.New("config").Funcs(template.FuncMap{
	"strs":  renderStringArray,
	"float": renderFloat,
	"flag":  func(b *bool) bool { return b == nil || *b },
}).Parse(configTemplate))

// Render produces the config file text for cfg.
func Render(cfg *Config) (string, error) {
	var b strings.Builder
	if err := configTmpl.Execute(&b, cfg); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return b.String(), nil
}

func renderStringArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// renderFloat always emits a decimal point so the value stays a TOML float.
func renderFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
