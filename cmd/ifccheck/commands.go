package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/ifccheck"
	"github.com/brunobiangulo/ifccheck/shape"
)

// violationsError signals a completed run with conflicts.
type violationsError struct{ n int }

func (e violationsError) Error() string {
	return fmt.Sprintf("%d conflicts found", e.n)
}

type validateFlags struct {
	store            string
	out              string
	rdfFormat        string
	xlsx             bool
	metricsFile      string
	noSuggestions    bool
	failOnViolations bool
	neo4jURI         string
	neo4jUser        string
	neo4jPassword    string
	neo4jDatabase    string
	chatProvider     string
	chatModel        string
	chatBaseURL      string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		logLevel   string
	)
	root := &cobra.Command{
		Use:           "ifccheck",
		Short:         "Validate IFC building models against ontology shapes",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newValidateCmd(&configPath),
		newRulesCmd(),
		newVersionCmd(),
	)
	return root
}

func newValidateCmd(configPath *string) *cobra.Command {
	var f validateFlags
	cmd := &cobra.Command{
		Use:   "validate <model>",
		Short: "Build the graphs for a model, check the shapes and write the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)

			eng, err := ifccheck.New(cfg)
			if err != nil {
				return err
			}
			res, err := eng.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res.Conforms() {
				fmt.Fprintln(w, "Model conforms.")
			} else {
				fmt.Fprintf(w, "%d conflicts found.\n", len(res.Violations))
			}
			fmt.Fprintf(w, "Report: %s\nGraph:  %s\n", res.ReportPath, res.RDFPath)
			if res.XLSXPath != "" {
				fmt.Fprintf(w, "XLSX:   %s\n", res.XLSXPath)
			}
			if f.failOnViolations && !res.Conforms() {
				return violationsError{n: len(res.Violations)}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.store, "store", "", "graph store backend (neo4j, sqlite, memory)")
	fl.StringVarP(&f.out, "out", "o", "", "output directory")
	fl.StringVar(&f.rdfFormat, "rdf-format", "", "RDF serialization (turtle, ntriples)")
	fl.BoolVar(&f.xlsx, "xlsx", false, "also write validation_report.xlsx")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fl.BoolVar(&f.noSuggestions, "no-suggestions", false, "skip the LLM and use the default suggestion")
	fl.BoolVar(&f.failOnViolations, "fail-on-violations", false, "exit with status 2 when conflicts are found")
	fl.StringVar(&f.neo4jURI, "neo4j-uri", "", "Neo4j bolt URI")
	fl.StringVar(&f.neo4jUser, "neo4j-user", "", "Neo4j username")
	fl.StringVar(&f.neo4jPassword, "neo4j-password", "", "Neo4j password")
	fl.StringVar(&f.neo4jDatabase, "neo4j-database", "", "Neo4j database name")
	fl.StringVar(&f.chatProvider, "chat-provider", "", "suggestion provider (ollama, lmstudio, openai, custom)")
	fl.StringVar(&f.chatModel, "chat-model", "", "suggestion model")
	fl.StringVar(&f.chatBaseURL, "chat-base-url", "", "suggestion provider base URL")
	return cmd
}

// apply overrides cfg with the flags set on the command line. Flags win over
// the environment, which wins over the config file.
func (f *validateFlags) apply(cmd *cobra.Command, cfg *ifccheck.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("store", &cfg.Store.Backend, f.store)
	set("out", &cfg.OutputDir, f.out)
	set("rdf-format", &cfg.RDFFormat, f.rdfFormat)
	set("metrics-file", &cfg.MetricsFile, f.metricsFile)
	set("neo4j-uri", &cfg.Store.URI, f.neo4jURI)
	set("neo4j-user", &cfg.Store.Username, f.neo4jUser)
	set("neo4j-password", &cfg.Store.Password, f.neo4jPassword)
	set("neo4j-database", &cfg.Store.Database, f.neo4jDatabase)
	set("chat-provider", &cfg.Chat.Provider, f.chatProvider)
	set("chat-model", &cfg.Chat.Model, f.chatModel)
	set("chat-base-url", &cfg.Chat.BaseURL, f.chatBaseURL)
	if cmd.Flags().Changed("xlsx") {
		cfg.XLSX = f.xlsx
	}
	if f.noSuggestions {
		cfg.Suggestions.Enabled = false
	}
}

func loadConfig(path string) (ifccheck.Config, error) {
	cfg := ifccheck.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = ifccheck.LoadConfig(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newRulesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the compiled shape set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shapes := shape.Default().Shapes()
			w := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(w)
				enc.SetIndent(2)
				if err := enc.Encode(map[string][]shape.Shape{"shapes": shapes}); err != nil {
					return err
				}
				return enc.Close()
			case "table":
				return writeRulesTable(w, shapes)
			default:
				return fmt.Errorf("unknown format %q (want table or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table, yaml)")
	return cmd
}

func writeRulesTable(w io.Writer, shapes []shape.Shape) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTARGET\tPATH\tCLASS\tCOUNT\tSEVERITY")
	for _, s := range shapes {
		target := s.TargetClass
		if target == "" {
			target = "(any subject)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, target, s.Path, s.Class, countRange(s), s.Severity)
	}
	return tw.Flush()
}

func countRange(s shape.Shape) string {
	if !s.HasBounds() {
		return "each"
	}
	lo, hi := "0", "*"
	if s.MinCount != nil {
		lo = strconv.Itoa(*s.MinCount)
	}
	if s.MaxCount != nil {
		hi = strconv.Itoa(*s.MaxCount)
	}
	return lo + ".." + hi
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ifccheck", version)
		},
	}
}
