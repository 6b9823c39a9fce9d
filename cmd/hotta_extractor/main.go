package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	herrors "github.com/shiroemons/go-hotta-extractor/internal/hotta/errors"
)

func main() {
	// Ctrl+C で実行を中断する
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run はコマンドを実行し、終了コードを返します
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		// 実行全体の失敗はログに出力済み
		if !errors.Is(err, herrors.ErrRunFailed) {
			fmt.Fprintf(stderr, "エラー: %v\n", err)
		}
		return 1
	}
	return 0
}
