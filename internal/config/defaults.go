package config

import (
	"path/filepath"
	"time"
)

// Default returns the built-in configuration rooted at homeDir.
func Default(homeDir string) Config {
	return Config{
		LogLevel: "info",
		Paths:    PathsConfig{BaseDir: filepath.Join(homeDir, ".openclaw")}.withDefaults(),
		Monitor: MonitorConfig{
			ProcessName:         "openclaw",
			StatusURL:           "http://localhost:3000/status",
			CheckInterval:       300 * time.Second,
			TimeoutThreshold:    1200 * time.Second,
			FallbackDelay:       60 * time.Second,
			ProcessCheckTimeout: 10 * time.Second,
			ProbeTimeout:        5 * time.Second,
			StopCommand:         []string{"openclaw", "gateway", "stop"},
			StartCommand:        []string{"openclaw", "gateway", "start"},
			StopTimeout:         30 * time.Second,
			StopGrace:           2 * time.Second,
			KillGrace:           1 * time.Second,
			StartupWait:         5 * time.Second,
		},
		Network: NetworkConfig{
			HTTPProxy:  "http://127.0.0.1:4780",
			HTTPSProxy: "http://127.0.0.1:4780",
			SOCKSProxy: "socks5://127.0.0.1:4781",
			DomesticDomains: []string{
				"baidu.com", "taobao.com", "qq.com", "jd.com",
				"weibo.com", "zhihu.com", "bilibili.com", "163.com",
				"sina.com.cn", "sohu.com", "360.cn", "csdn.net",
			},
			InternationalDomains: []string{
				"google.com", "github.com", "telegram.org", "openai.com",
				"claude.ai", "twitter.com", "youtube.com", "reddit.com",
				"stackoverflow.com", "medium.com", "aws.amazon.com",
			},
			DomesticTargets: []Target{
				{Name: "Baidu", URL: "https://www.baidu.com"},
				{Name: "Taobao", URL: "https://www.taobao.com"},
				{Name: "Tencent", URL: "https://www.qq.com"},
			},
			InternationalTargets: []Target{
				{Name: "Google", URL: "https://www.google.com"},
				{Name: "GitHub", URL: "https://www.github.com"},
				{Name: "Telegram API", URL: "https://api.telegram.org"},
			},
			GatewayURL:         "http://localhost:18789/status",
			GatewayPattern:     "openclaw.*gateway",
			GatewayCommand:     []string{"openclaw", "gateway", "--port", "18789", "--verbose"},
			GatewayStartupWait: 5 * time.Second,
			ProbeTimeout:       10 * time.Second,
			GatewayTimeout:     3 * time.Second,
			CheckInterval:      30 * time.Minute,
		},
		Notify: NotifyConfig{
			TelegramAPIBase: "https://api.telegram.org",
		},
	}
}
