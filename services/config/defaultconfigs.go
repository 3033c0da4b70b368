package config

// Runtime settings per board name. Pin-level wiring lives in the board
// descriptors; these are the values services may change while running.

const defaultBoard = "host-demo"

const cfgHostDemo = `{
  "heartbeat": {"interval_s": 2},
  "audio": {"volume": 70},
  "tools": {"timeout_ms": 5000}
}`

const cfgXiaoSense = `{
  "heartbeat": {"interval_s": 10},
  "audio": {"volume": 80},
  "tools": {"timeout_ms": 4000}
}`

var embeddedConfigs = map[string][]byte{
	"host-demo":                []byte(cfgHostDemo),
	"seeed-xiao-esp32s3-sense": []byte(cfgXiaoSense),
}
