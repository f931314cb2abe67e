package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/songvocab/pkg/observe"
	"github.com/japaniel/songvocab/pkg/songvocab"
)

var (
	processTitle    string
	processArtist   string
	processThoughts bool
)

var processCmd = &cobra.Command{
	Use:   "process [message]",
	Short: "Run one song through the pipeline and print the result as JSON",
	Example: `  songvocab process "99 Luftballons by Nena"
  songvocab process --title "Yesterday" --artist "The Beatles"`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := songvocab.SongRequest{
			Message: strings.Join(args, " "),
			Title:   processTitle,
			Artist:  processArtist,
		}
		a, err := newApp(cmd.Context(), cfg, logger, observe.NopMetrics())
		if err != nil {
			return err
		}
		defer a.Close()

		res, tr, err := a.agent.Process(cmd.Context(), req)
		if processThoughts {
			for _, th := range tr.Thoughts() {
				fmt.Fprintln(cmd.ErrOrStderr(), th)
			}
		}
		if err != nil {
			e := songvocab.AsError(err, songvocab.KindUnknown)
			if encErr := encodeJSON(cmd.OutOrStdout(), errorJSON(e)); encErr != nil {
				return encErr
			}
			return e
		}
		return encodeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	processCmd.Flags().StringVar(&processTitle, "title", "", "song title (takes precedence over the message)")
	processCmd.Flags().StringVar(&processArtist, "artist", "", "song artist")
	processCmd.Flags().BoolVar(&processThoughts, "thoughts", false, "print the processing trace to stderr")
}

type cliError struct {
	Status     string                     `json:"status"`
	Error      string                     `json:"error"`
	Code       string                     `json:"code"`
	Lyrics     string                     `json:"lyrics,omitempty"`
	Vocabulary []songvocab.VocabularyItem `json:"vocabulary,omitempty"`
}

func errorJSON(e *songvocab.Error) cliError {
	return cliError{
		Status:     "error",
		Error:      e.Error(),
		Code:       e.Code(),
		Lyrics:     e.Lyrics,
		Vocabulary: e.Vocabulary,
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
