package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"jetdb"
	"jetdb/jetsql"
)

var (
	configFile string
	cfg        *Config
)

var rootCmd = &cobra.Command{
	Use:           "jetdb",
	Short:         "Read Jet (.mdb) database files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadConfig(cmd.Flags(), configFile); err != nil {
			return err
		}
		return cfg.setupLogging()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configFile, "config", "", "config file (default .jetdb.yaml in . or $HOME)")
	f.String("date-format", jetdb.DefaultDateFormat, "strftime pattern for DateTime columns")
	f.String("charset", "", "code page of Jet3 text, e.g. windows-1252")
	f.Int("cache-pages", jetdb.DefaultCachePages, "pages kept in the page cache, 0 disables it")
	f.String("cache-compression", "snappy", "page cache compression: snappy, lz4 or none")
	f.Bool("mmap", false, "memory map the database file")
	f.Int("max-chain-hops", jetdb.DefaultMaxChainHops, "longest memo/OLE page chain accepted")
	f.String("log-level", "warning", "log level")
	f.String("log-format", "text", "log format: text or json")
	f.Bool("stats", false, "print page store counters to stderr when done")

	rootCmd.AddCommand(tablesCmd, catalogCmd, describeCmd, newSelectCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openSession connects a SQL session to path and arranges for it to be
// closed by the returned func.
func openSession(path string) (*jetsql.SQL, func(), error) {
	s := jetsql.New(cfg.options())
	if err := s.Open(path); err != nil {
		return nil, nil, err
	}
	return s, func() {
		if cfg.Stats {
			st := s.DB().Stats()
			fmt.Fprintf(os.Stderr, "page reads: %d, cache hits: %d, cache misses: %d\n",
				st.PageReads, st.CacheHits, st.CacheMisses)
		}
		_ = s.Close()
	}, nil
}

var tablesCmd = &cobra.Command{
	Use:   "tables <db>",
	Short: "List the user tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer done()
		if err := s.ListTables(); err != nil {
			return err
		}
		_, err = s.Dump(cmd.OutOrStdout(), jetsql.DumpOptions{Headers: true})
		return err
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog <db>",
	Short: "List every catalog object with its type and definition page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := jetdb.Open(args[0], cfg.options())
		if err != nil {
			return err
		}
		defer db.Close()
		entries, err := db.Catalog()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "Name\tType\tPage")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%d\n", e.Name, e.Type, e.TableDefPage)
		}
		return w.Flush()
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <db> <table>",
	Short: "Show the columns of a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, done, err := openSession(args[0])
		if err != nil {
			return err
		}
		defer done()
		s.AddTable(args[1])
		if err := s.DescribeTable(); err != nil {
			return err
		}
		_, err = s.Dump(cmd.OutOrStdout(), jetsql.DefaultDumpOptions)
		return err
	},
}

type selectFlags struct {
	columns   []string
	where     []string
	or        bool
	indexes   []string
	delimiter string
	noHeaders bool
	noFooters bool
	plain     bool
	showplan  bool
	noexec    bool
}

func newSelectCmd() *cobra.Command {
	var sf selectFlags
	cmd := &cobra.Command{
		Use:   "select <db> <table>",
		Short: "Print the rows of a table",
		Long: "Print the rows of a table. Each --where takes \"column op literal\" with op one of\n" +
			"= > < >= <= like, \"is null\" or \"is not null\"; string literals are quoted.\n" +
			"Several conditions are combined with AND, or with OR when --or is given.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openSession(args[0])
			if err != nil {
				return err
			}
			defer done()
			return runSelect(cmd, s, args[1], &sf)
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&sf.columns, "columns", "c", nil, "columns to print (default all)")
	f.StringArrayVarP(&sf.where, "where", "w", nil, "filter condition, repeatable")
	f.BoolVar(&sf.or, "or", false, "combine conditions with OR instead of AND")
	f.StringSliceVar(&sf.indexes, "index", nil, "build an in-memory index on these columns")
	f.StringVarP(&sf.delimiter, "delimiter", "d", "\t", "field delimiter for plain output")
	f.BoolVarP(&sf.noHeaders, "no-headers", "H", false, "omit the header row")
	f.BoolVarP(&sf.noFooters, "no-footers", "F", false, "omit the row count")
	f.BoolVarP(&sf.plain, "plain", "P", false, "delimited output instead of a drawn table")
	f.BoolVar(&sf.showplan, "showplan", false, "print the predicate tree and scan strategy")
	f.BoolVar(&sf.noexec, "noexec", false, "plan the query without running it")
	return cmd
}

func runSelect(cmd *cobra.Command, s *jetsql.SQL, table string, sf *selectFlags) error {
	if len(sf.columns) == 0 {
		s.AllColumns()
	}
	for _, c := range sf.columns {
		s.AddColumn(c)
	}
	s.AddTable(table)
	for _, c := range sf.indexes {
		s.AddIndex(c)
	}
	for i, w := range sf.where {
		col, op, lit, err := parseCondition(w)
		if err != nil {
			s.Reset()
			return err
		}
		if err := s.AddSarg(col, op, lit); err != nil {
			return errors.Wrapf(err, "condition %q", w)
		}
		if i == 0 {
			continue
		}
		if sf.or {
			err = s.AddOr()
		} else {
			err = s.AddAnd()
		}
		if err != nil {
			return err
		}
	}
	if err := s.Select(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sf.showplan {
		if err := s.ShowPlan(out); err != nil {
			return err
		}
	}
	if sf.noexec {
		s.Reset()
		return nil
	}
	_, err := s.Dump(out, jetsql.DumpOptions{
		Pretty:    !sf.plain,
		Delimiter: sf.delimiter,
		Headers:   !sf.noHeaders,
		Footers:   !sf.noFooters,
	})
	return err
}
