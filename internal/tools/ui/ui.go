package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	detailStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(2)
)

// Run executes fn under a styled banner and prints its detail lines, for the
// interactive tool commands.
func Run(title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	fmt.Println(titleStyle.Render(title))
	started := time.Now()
	details, err := fn(ctx)
	for _, d := range details {
		fmt.Println(detailStyle.Render(d))
	}
	elapsed := time.Since(started).Round(time.Millisecond)
	if err != nil {
		fmt.Println(failStyle.Render(fmt.Sprintf("failed after %s: %v", elapsed, err)))
		return details, err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("done in %s", elapsed)))
	return details, nil
}
