// Package logging はコンソール向けのslogハンドラを提供します。
// 出力形式は "[15:04:05 INF] メッセージ key=value" です。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// TimeFormat は時刻の表示形式です
const TimeFormat = "15:04:05"

// Options はハンドラの設定です
type Options struct {
	Level slog.Leveler
	Color bool
	// Now は時刻の取得に使う関数で、nil なら time.Now を使います
	Now func() time.Time
}

// levelStyle はレベルごとの表示です
type levelStyle struct {
	label string
	style lipgloss.Style
}

// Handler はコンソールに1レコード1行（メッセージ内の改行はそのまま）で出力するハンドラです
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	levels map[slog.Level]levelStyle
	faint  lipgloss.Style
	prefix string
	attrs  string
}

// NewHandler は新しいHandlerを作成します
func NewHandler(w io.Writer, opts *Options) *Handler {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Level == nil {
		o.Level = slog.LevelInfo
	}
	if o.Now == nil {
		o.Now = time.Now
	}

	r := lipgloss.NewRenderer(w)
	if o.Color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Handler{
		mu:   &sync.Mutex{},
		w:    w,
		opts: o,
		levels: map[slog.Level]levelStyle{
			slog.LevelDebug: {"DBG", r.NewStyle().Foreground(lipgloss.Color("241"))},
			slog.LevelInfo:  {"INF", r.NewStyle().Foreground(lipgloss.Color("42"))},
			slog.LevelWarn:  {"WRN", r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)},
			slog.LevelError: {"ERR", r.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)},
		},
		faint: r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Enabled はレベルが出力対象かを返します
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle はレコードを1件出力します
func (h *Handler) Handle(_ context.Context, rec slog.Record) error {
	t := rec.Time
	if t.IsZero() {
		t = h.opts.Now()
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(t.Format(TimeFormat))
	b.WriteString(" ")
	b.WriteString(h.levelLabel(rec.Level))
	b.WriteString("] ")
	b.WriteString(rec.Message)

	attrs := h.attrs
	rec.Attrs(func(a slog.Attr) bool {
		attrs += formatAttr(h.prefix, a)
		return true
	})
	if attrs != "" {
		b.WriteString(h.faint.Render(attrs))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs は属性を追加したハンドラを返します
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	for _, a := range attrs {
		h2.attrs += formatAttr(h.prefix, a)
	}
	return &h2
}

// WithGroup はキーにグループ名を付けるハンドラを返します
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func (h *Handler) levelLabel(level slog.Level) string {
	if ls, ok := h.levels[level]; ok {
		return ls.style.Render(ls.label)
	}
	return level.String()
}

// formatAttr は " key=value" 形式の文字列を返します
func formatAttr(prefix string, a slog.Attr) string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ""
	}
	if a.Value.Kind() == slog.KindGroup {
		var s string
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			s += formatAttr(p, ga)
		}
		return s
	}

	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " =\"\n\t") {
		v = strconv.Quote(v)
	}
	return fmt.Sprintf(" %s%s=%s", prefix, a.Key, v)
}

// ColorEnabled はwが端末で、NO_COLORが設定されていない場合にtrueを返します
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Setup はプロセス全体のロガーを設定して返します。
// debug が true の場合はDebugレベルのレコードも出力します。
func Setup(w io.Writer, debug bool) *slog.Logger {
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(NewHandler(w, &Options{Level: level, Color: ColorEnabled(w)}))
	slog.SetDefault(logger)
	return logger
}
