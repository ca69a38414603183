package bench

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Report 是一次完整基准运行的结果。
type Report struct {
	Store string
	Write PhaseResult
	Read  PhaseResult
}

var (
	doneColor  = color.New(color.FgGreen)
	labelColor = color.New(color.Bold)
)

// Banner 返回阶段开始时的提示，例如 "Writing x 10,000..."。
func Banner(phase string, count int) string {
	verb := "Writing"
	if phase == PhaseRead {
		verb = "Reading"
	}
	return fmt.Sprintf("%s x %s...", verb, humanize.Comma(int64(count)))
}

// Done 返回阶段完成标记。
func Done() string {
	return "\t\t" + doneColor.Sprint("Done!")
}

// Render 以对齐的文本格式输出报告。
func (r *Report) Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s\t%s\n", labelColor.Sprint("Store:"), r.Store); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Writes per second:\t%13.2f\n", r.Write.OpsPerSecond()); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Reads per second:\t%13.2f\n", r.Read.OpsPerSecond()); err != nil {
		return err
	}
	for _, phase := range []PhaseResult{r.Write, r.Read} {
		if _, err := fmt.Fprintln(w, phase.Summary()); err != nil {
			return err
		}
	}
	return nil
}

// Summary 输出单个阶段的一行摘要。
func (p PhaseResult) Summary() string {
	line := fmt.Sprintf("%-5s %s ops in %s  p50=%s p99=%s max=%s",
		p.Phase,
		humanize.Comma(int64(p.Ops)),
		p.Elapsed.Round(time.Millisecond),
		p.P50, p.P99, p.Max,
	)
	if p.Bytes > 0 {
		line += "  " + humanize.Bytes(uint64(p.Bytes))
	}
	return line
}
