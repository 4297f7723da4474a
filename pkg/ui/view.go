package ui

import (
	"fmt"
	"strings"
)

// View renders the full screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("理想论坛自动签到 Ideal Forum Auto Sign-in"))
	b.WriteString("\n\n")

	// Status line.
	if m.running {
		b.WriteString(fmt.Sprintf("%s 签到进行中...\n", m.spinner.View()))
	} else {
		b.WriteString(statusStyle.Render("空闲") + "\n")
	}

	// Scheduler line.
	switch {
	case m.loop == nil:
		b.WriteString(statusStyle.Render("定时任务: 未启用") + "\n")
	case m.schedulerOn:
		state := m.loop.State()
		next := "计算中..."
		if !state.NextFire.IsZero() {
			next = state.NextFire.Format("2006-01-02 15:04:05")
		}
		b.WriteString(fmt.Sprintf("定时任务: 运行中, 下次签到 %s\n", next))
	default:
		b.WriteString(fmt.Sprintf("定时任务: 已停止 (每日 %s)\n", m.settings.SignTime))
	}

	// Last result.
	if m.lastResult != nil {
		line := m.lastResult.String()
		if m.lastResult.Succeeded() {
			line = successStyle.Render(line)
		} else {
			line = errorStyle.Render(line)
		}
		b.WriteString("\n最近结果: " + line + "\n")
		if m.copied {
			b.WriteString(statusStyle.Render("(已复制到剪贴板)") + "\n")
		}
	}

	// History panel.
	if len(m.history) > 0 {
		b.WriteString("\n" + panelStyle.Render(strings.Join(m.history, "\n")) + "\n")
	}

	// Config panel.
	if m.showConfig {
		b.WriteString("\n" + panelStyle.Render(strings.TrimRight(m.settings.Summary(), "\n")) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("s 立即签到 · d 定时开关 · c 配置 · y 复制结果 · q 退出"))
	return b.String()
}
