package ui

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles key presses, attempt results and the periodic refresh.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resultMsg:
		m.running = false
		if msg.err != nil {
			m.pushHistory(errorStyle.Render(fmt.Sprintf("环境错误: %v", msg.err)))
			return m, nil
		}
		m.lastResult = msg.result
		line := msg.result.String()
		if msg.result.Succeeded() {
			line = successStyle.Render(line)
		} else {
			line = errorStyle.Render(line)
		}
		m.pushHistory(fmt.Sprintf("%s %s", msg.result.Timestamp.Format("15:04:05"), line))
		return m, nil

	case refreshMsg:
		return m, refreshTick()

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.cancelScheduler != nil {
			m.cancelScheduler()
		}
		return m, tea.Quit

	case "s":
		if m.running {
			return m, nil
		}
		m.running = true
		m.copied = false
		m.pushHistory(statusStyle.Render("手动签到开始..."))
		return m, m.runCheckin()

	case "d":
		return m.toggleScheduler()

	case "c":
		m.showConfig = !m.showConfig
		return m, nil

	case "y":
		if m.lastResult != nil {
			if err := clipboard.WriteAll(m.lastResult.String()); err == nil {
				m.copied = true
			}
		}
		return m, nil
	}

	return m, nil
}

// toggleScheduler starts or stops the background daily loop. The loop shares
// the same check-in entry point as the manual trigger; while an attempt runs
// the manual key is ignored, so the two can never interleave from the UI.
func (m Model) toggleScheduler() (tea.Model, tea.Cmd) {
	if m.loop == nil {
		m.pushHistory(statusStyle.Render("定时任务未启用 (enable_schedule = false)"))
		return m, nil
	}

	if m.schedulerOn {
		m.cancelScheduler()
		m.cancelScheduler = nil
		m.schedulerOn = false
		m.pushHistory(statusStyle.Render("定时签到已停止"))
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelScheduler = cancel
	m.schedulerOn = true
	loop := m.loop
	go loop.Run(ctx)
	m.pushHistory(statusStyle.Render("定时签到已启动"))
	return m, nil
}

func (m *Model) pushHistory(line string) {
	m.history = append(m.history, line)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}
