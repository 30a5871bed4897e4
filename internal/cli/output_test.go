package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"clawguard/internal/backup"
	"clawguard/internal/nethealth"
	"clawguard/internal/reporting"
	"clawguard/internal/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintSnapshot_Table(t *testing.T) {
	var buf bytes.Buffer
	age := 1300.0
	err := NewPrinter(&buf, false).PrintSnapshot(status.Snapshot{
		Message:             "no process found",
		ConsecutiveFailures: 2,
		HeartbeatAge:        &age,
		State:               "degraded",
		LastError:           "restart failed",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "no process found")
	assert.Contains(t, out, "1300s")
	assert.Contains(t, out, "restart failed")
	assert.Contains(t, out, "heartbeat age")
}

func TestPrintSnapshot_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, true).PrintSnapshot(status.Snapshot{IsRunning: true, Message: "healthy"}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["is_running"])
	assert.Nil(t, decoded["heartbeat_age"])
}

func TestPrintBackups(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	require.NoError(t, p.PrintBackups(nil))
	assert.Contains(t, buf.String(), "No backups found")

	buf.Reset()
	infos := []backup.Info{
		{Name: "openclaw_backup_20261017_090000_manual.json", ModTime: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), Size: 10},
		{Name: "openclaw_backup_20261017_100000_pre_restart.json", ModTime: time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), Size: 12},
	}
	require.NoError(t, p.PrintBackups(infos))
	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("pre_restart")), bytes.Index(buf.Bytes(), []byte("_manual")), "newest first")
	assert.Contains(t, out, "backups")
}

func TestPrintCategoryAndReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	c := nethealth.CategoryResult{
		Check:      nethealth.CheckDomestic,
		Status:     nethealth.StatusFailed,
		Details:    "2/3 succeeded",
		ProxyState: "off",
		Results: []nethealth.SiteResult{
			{Name: "Baidu", Target: "https://www.baidu.com", Success: true, LatencyMS: 12.34},
			{Name: "Taobao", Target: "https://www.taobao.com", Success: false},
		},
	}
	require.NoError(t, p.PrintCategory(c))
	assert.Contains(t, buf.String(), "2/3 succeeded")
	assert.Contains(t, buf.String(), "12.34 ms")

	buf.Reset()
	checks := []nethealth.CategoryResult{c, {Check: nethealth.CheckGateway, Status: nethealth.StatusHealthy, Details: "1/1 succeeded"}}
	require.NoError(t, p.PrintReport(nethealth.Report{Checks: checks, Summary: nethealth.Summarize(checks)}))
	assert.Contains(t, buf.String(), "50.0% (1/2)")
}

func TestPrintEvents(t *testing.T) {
	var buf bytes.Buffer
	events := []reporting.Event{{Timestamp: time.Now(), Type: reporting.EventTypeProxyOff, Details: "proxy disabled", ProxyState: "off"}}
	require.NoError(t, NewPrinter(&buf, true).PrintEvents(events))
	assert.Contains(t, buf.String(), `"total": 1`)
	assert.Contains(t, buf.String(), `"proxy_off"`)
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"healthy", "✅ healthy"},
		{"critical", "❌ critical"},
		{"warning", "⚠️  warning"},
		{"degraded(2)", "🔴 degraded(2)"},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Contains(t, FormatStatus(tt.status), tt.want)
		})
	}
}
