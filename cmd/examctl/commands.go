package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-sheets-api/internal/models"
	"github.com/noah-isme/exam-sheets-api/internal/quizxml"
	"github.com/noah-isme/exam-sheets-api/internal/results"
	"github.com/noah-isme/exam-sheets-api/internal/roster"
	"github.com/noah-isme/exam-sheets-api/internal/statistics"
	"github.com/noah-isme/exam-sheets-api/pkg/config"
	"github.com/noah-isme/exam-sheets-api/pkg/export"
	"github.com/noah-isme/exam-sheets-api/pkg/i18n"
	"github.com/noah-isme/exam-sheets-api/pkg/logger"
)

const stdio = "-"

// flagKeys maps CLI flags onto the configuration keys shared with the server.
var flagKeys = map[string]string{
	"codepage":         "PIPELINE_CODEPAGE",
	"roster-separator": "ROSTER_SEPARATOR",
	"result-separator": "RESULT_SEPARATOR",
	"output-separator": "OUTPUT_SEPARATOR",
	"types":            "ALLOWED_QUESTION_TYPES",
	"thresholds":       "GRADE_THRESHOLDS",
	"lang":             "STATISTICS_LANG",
	"log-level":        "LOG_LEVEL",
	"log-format":       "LOG_FORMAT",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examctl",
		Short:        "Run the exam sheet pipeline over local files",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.String("codepage", "", "Code page of roster and result CSV files (default windows-1250)")
	pf.StringP("output", "o", stdio, "Output file path (- for stdout)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-format", "", "Log format (json, console)")

	root.AddCommand(extractCmd(), rosterCmd(), flattenCmd(), statsCmd())
	return root
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract QUIZ.xml",
		Short: "Extract printable questions from a Moodle quiz export",
		Long: "Extract printable questions from a Moodle quiz export. With --students the output is the\n" +
			"full quiz payload sent to the print service.",
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
	f := cmd.Flags()
	f.String("types", "", "Comma-separated question types to keep (default multichoice,truefalse)")
	f.String("students", "", "Roster CSV to combine with the questions")
	f.String("roster-separator", "", "Roster field separator (default ;)")
	f.String("date", "", "Exam date, YYYY-MM-DD (default today)")
	return cmd
}

func rosterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster STUDENTS.csv",
		Short: "Decode a student roster export into JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runRoster,
	}
	cmd.Flags().String("roster-separator", "", "Roster field separator (default ;)")
	return cmd
}

func flattenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flatten EVALUATION.json",
		Short: "Flatten an OCR evaluation response into result.csv",
		Args:  cobra.ExactArgs(1),
		RunE:  runFlatten,
	}
	f := cmd.Flags()
	f.Int("questions", 0, "Number of questions every sheet must carry (0 = from the first row)")
	f.String("output-separator", "", "CSV field separator (default ,)")
	f.Bool("zip", false, "Write result.zip with result.csv and log.txt instead of plain CSV")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats RESULT.csv",
		Short: "Compute chart statistics from a result export",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
	f := cmd.Flags()
	f.String("result-separator", "", "Result CSV field separator (default ,)")
	f.String("thresholds", "", "Four descending grade thresholds (default 0.9,0.8,0.7,0.6)")
	f.String("lang", "", "Label language (default cs)")
	f.String("format", "json", "Output format (json, pdf)")
	return cmd
}

// loadConfig layers explicitly set flags over the environment and defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, *viper.Viper, error) {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, nil, err
	}
	for name, key := range flagKeys {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			v.Set(key, fl.Value.String())
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

// newLogger keeps the CLI quiet unless a level is asked for explicitly.
func newLogger(cfg *config.Config, cmd *cobra.Command) *zap.Logger {
	if fl := cmd.Flags().Lookup("log-level"); fl == nil || !fl.Changed {
		cfg.Log.Level = "warn"
	}
	l, err := logger.New(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func normalizerFor(cfg *config.Config, l *zap.Logger) *roster.Normalizer {
	return roster.NewNormalizer(roster.Options{
		CodePage:        cfg.Pipeline.CodePage,
		RosterSeparator: cfg.Pipeline.RosterSeparator,
		ResultSeparator: cfg.Pipeline.ResultSeparator,
	}, l.Named("roster"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l := newLogger(cfg, cmd)
	defer l.Sync() //nolint:errcheck

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read quiz: %w", err)
	}
	types := make([]models.QuestionType, 0, len(cfg.Pipeline.AllowedQuestionTypes))
	for _, t := range cfg.Pipeline.AllowedQuestionTypes {
		types = append(types, models.QuestionType(t))
	}
	questions, err := quizxml.NewExtractor(quizxml.Options{AllowedTypes: types}, validator.New(), l.Named("quizxml")).Extract(raw)
	if err != nil {
		return err
	}

	studentsPath := v.GetString("students")
	if studentsPath == "" {
		return writeJSON(cmd, v, questions)
	}
	rosterRaw, err := os.ReadFile(studentsPath)
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	students, err := normalizerFor(cfg, l).ParseRoster(rosterRaw)
	if err != nil {
		return err
	}
	date := v.GetString("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return writeJSON(cmd, v, models.Quiz{Questions: questions, Students: students, Date: date})
}

func runRoster(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l := newLogger(cfg, cmd)
	defer l.Sync() //nolint:errcheck

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	students, err := normalizerFor(cfg, l).ParseRoster(raw)
	if err != nil {
		return err
	}
	return writeJSON(cmd, v, students)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l := newLogger(cfg, cmd)
	defer l.Sync() //nolint:errcheck

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read evaluation: %w", err)
	}
	var resp models.EvaluationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("decode evaluation: %w", err)
	}
	flat, err := results.NewFlattener(results.Options{ExpectedQuestions: v.GetInt("questions")}, l.Named("results")).Flatten(resp.Result)
	if err != nil {
		return err
	}
	dataset, err := results.Dataset(flat)
	if err != nil {
		return err
	}
	csvBytes, err := export.NewCSVExporter(cfg.Pipeline.OutputSeparator).Render(dataset)
	if err != nil {
		return err
	}
	if !v.GetBool("zip") {
		return writeOutput(cmd, v.GetString("output"), csvBytes)
	}
	archive, err := export.NewZipPackager(time.Time{}).Bundle(
		export.Entry{Name: "result.csv", Data: csvBytes},
		export.Entry{Name: "log.txt", Data: []byte(resp.Log)},
	)
	if err != nil {
		return err
	}
	return writeOutput(cmd, v.GetString("output"), archive)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l := newLogger(cfg, cmd)
	defer l.Sync() //nolint:errcheck

	format := strings.ToLower(v.GetString("format"))
	if format != "json" && format != "pdf" {
		return fmt.Errorf("unknown format %q, want json or pdf", format)
	}

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read results: %w", err)
	}
	rows, err := normalizerFor(cfg, l).ParseResultRows(raw)
	if err != nil {
		return err
	}
	translator, err := i18n.New(cfg.Statistics.Lang, l.Named("i18n"))
	if err != nil {
		return err
	}
	aggregator, err := statistics.NewAggregator(statistics.Options{Thresholds: cfg.Pipeline.GradeThresholds}, translator, l.Named("statistics"))
	if err != nil {
		return err
	}
	lang := translator.DefaultLanguage()
	bundle, err := aggregator.Aggregate(rows, lang)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(cmd, v, bundle)
	}

	doc, err := export.NewPDFExporter().RenderReport(translator.T(lang, i18n.MsgReportTitle), statistics.ReportSections(bundle, translator, lang)...)
	if err != nil {
		return err
	}
	return writeOutput(cmd, v.GetString("output"), doc)
}

func writeJSON(cmd *cobra.Command, v *viper.Viper, value interface{}) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, v.GetString("output"), append(payload, '\n'))
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	var w io.Writer = cmd.OutOrStdout()
	if path != "" && path != stdio {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	_, err := w.Write(data)
	return err
}
