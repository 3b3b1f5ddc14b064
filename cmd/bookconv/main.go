// Command bookconv converts an opening book between the binary and the
// SQLite layouts. The layout of each file follows from its extension.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/connect4/book"
	"github.com/domino14/connect4/config"
)

func main() {
	cfg := config.DefaultConfig()
	err := cfg.Load(os.Args[1:], func(fs *pflag.FlagSet) {
		fs.String("in", "", "book to read")
		fs.String("out", "", "book to write")
		fs.Uint("attempts", 3, "tries for writing the output book")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	in, out := cfg.GetString("in"), cfg.GetString("out")
	if in == "" || out == "" {
		log.Fatal().Msg("usage: bookconv --in <book> --out <book>")
	}
	if err := convert(in, out, cfg.GetUint("attempts")); err != nil {
		log.Fatal().Err(err).Msg("conversion-failed")
	}
}

func convert(in, out string, attempts uint) error {
	bk, err := book.Load(in)
	if err != nil {
		return err
	}
	// a SQLite file can be briefly locked by another reader
	err = retry.Do(
		func() error { return bk.Write(out) },
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Msg("retrying-book-write")
		}),
	)
	if err != nil {
		return err
	}

	written, err := book.Load(out)
	if err != nil {
		return err
	}
	if written.Len() != bk.Len() || written.Digest() != bk.Digest() {
		return fmt.Errorf("%s does not match %s after conversion", out, in)
	}
	log.Info().Str("in", in).Str("out", out).Int("positions", bk.Len()).
		Str("digest", fmt.Sprintf("%016x", bk.Digest())).Msg("book-converted")
	return nil
}
