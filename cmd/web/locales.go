package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	najilaboule "github.com/atimot/najilaboule"
	"github.com/atimot/najilaboule/internal/i18n"
)

func newCheckLocalesCmd() *cobra.Command {
	var defaultLang string
	cmd := &cobra.Command{
		Use:   "check-locales [dir]",
		Short: "Validate locale files",
		Long: `Loads every <lang>.yaml file and checks that all languages carry the same
keys and the same number of philosophy slides. Without a directory the
embedded locales are checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return checkLocales(cmd.OutOrStdout(), dir, i18n.Lang(defaultLang))
		},
	}
	cmd.Flags().StringVar(&defaultLang, "default-lang", "ja", "fallback language that must be present")
	return cmd
}

func checkLocales(out io.Writer, dir string, def i18n.Lang) error {
	var (
		store *i18n.Store
		err   error
	)
	if dir == "" {
		store, err = i18n.Load(najilaboule.Locales, "locales", def)
	} else {
		store, err = i18n.Load(os.DirFS(dir), ".", def)
	}
	if err != nil {
		var verr *i18n.ValidationError
		if errors.As(err, &verr) {
			for _, p := range verr.Problems() {
				fmt.Fprintf(out, "ERROR %s\n", p)
			}
		}
		return err
	}

	for _, lang := range store.Languages() {
		dict, _ := store.Dictionary(lang)
		fmt.Fprintf(out, "OK %s (%s): %d keys, %d slides\n", lang, store.Label(lang), dict.Len(), store.SlideCount())
	}
	return nil
}
