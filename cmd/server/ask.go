package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/retry"
	"wisdom-core/internal/usecase"
)

func newAskCmd() *cobra.Command {
	var category, language string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question from the terminal, with bounded retries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			sessions := usecase.NewSessionManager(svc.resolver, svc.sessionPolicy(), cfg.SessionTTL, func(_ string, s retry.State) {
				if s == retry.StateSlow {
					fmt.Fprintln(out, "taking longer than expected...")
				}
			})
			defer sessions.Close()

			req := entity.WisdomRequest{
				Question: strings.Join(args, " "),
				Category: entity.Category(category),
				Language: entity.ParseLanguage(language),
			}
			return askLoop(cmd.Context(), sessions, req, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "category; classified from the question when empty")
	cmd.Flags().StringVarP(&language, "language", "l", "english", "reply language name or ISO code")
	return cmd
}

func askLoop(ctx context.Context, sessions *usecase.SessionManager, req entity.WisdomRequest, in io.Reader, out io.Writer) error {
	sess, resp := sessions.Start(ctx, req)
	printResponse(out, resp)

	prompt := bufio.NewScanner(in)
	for resp.IsFallback && sess.CanRetry() {
		fmt.Fprint(out, "Retry? [y/N] ")
		if !prompt.Scan() || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(prompt.Text())), "y") {
			return nil
		}
		var err error
		sess, resp, err = sessions.Retry(ctx, sess.ID)
		if errors.Is(err, retry.ErrExhausted) {
			fmt.Fprintln(out, "Please stop retrying, the service is unavailable right now.")
			return nil
		}
		if err != nil {
			return err
		}
		printResponse(out, resp)
	}
	if resp.IsFallback && !sess.CanRetry() {
		fmt.Fprintln(out, "Please stop retrying, the service is unavailable right now.")
	}
	return nil
}

func printResponse(w io.Writer, resp entity.WisdomResponse) {
	fmt.Fprintf(w, "[%s/%s via %s]\n%s\n", resp.Category, resp.Language, resp.Source, resp.Answer)
	switch {
	case resp.IsApiKeyIssue:
		fmt.Fprintln(w, "(offline answer: the AI key was rejected)")
	case resp.IsNetworkIssue:
		fmt.Fprintln(w, "(offline answer: network problem)")
	case resp.IsFallback:
		fmt.Fprintln(w, "(offline answer)")
	}
}
