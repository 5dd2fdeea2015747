// atc-console is a terminal harness for running a training scenario without
// the HTTP layer: it reads "frequency|transcript" lines from stdin and
// prints the controller's response for each one.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	orchestration "github.com/aeropractica/atc-core/core"
	"github.com/aeropractica/atc-core/core/audit"
	"github.com/aeropractica/atc-core/core/intents"
	"github.com/aeropractica/atc-core/core/llms/groq"
	"github.com/aeropractica/atc-core/core/phrase"
	"github.com/aeropractica/atc-core/core/prompts"
	"github.com/aeropractica/atc-core/core/scenario"
	"github.com/aeropractica/atc-core/core/sessions/sqlite"
	"github.com/aeropractica/atc-core/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		scenarioPath string
		templatesDir string
		rulesPath    string
		sessionID    string
		dbPath       string
		difficulty   int
	)

	cmd := &cobra.Command{
		Use:   "atc-console",
		Short: "Run a radio-training scenario from the terminal",
		Long: "atc-console drives one training session against a scenario file.\n" +
			"Each input line has the form \"frequency|transcript\", e.g.\n" +
			"  121.700|Pavas superficie, TI-ABC solicito rodaje",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if difficulty == 0 {
				difficulty = cfg.Difficulty
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			graph, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			templates, err := loadTemplates(templatesDir)
			if err != nil {
				return err
			}

			opts := []orchestration.OrchestratorOption{
				orchestration.WithTemplates(templates),
				orchestration.WithAuditTrail(audit.MultiTrail{audit.NewLogTrail(), audit.NewMemoryTrail()}),
				orchestration.WithPromptBuilder(prompts.NewBuilder(prompts.WithDifficulty(difficulty))),
				orchestration.WithDegradedAdvisoryThreshold(cfg.DegradedAdvisoryThreshold),
			}

			if cfg.GroqAPIKey != "" {
				opts = append(opts, orchestration.WithLLM(
					groq.NewClient(cfg.GroqAPIKey, groq.WithModel(cfg.GroqModel))))
				opts = append(opts, orchestration.WithLLMClassification())
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: GROQ_API_KEY not set, every turn will degrade to canned behavior")
			}

			if rulesPath != "" {
				detector, err := loadDetector(rulesPath)
				if err != nil {
					return err
				}
				opts = append(opts, orchestration.WithIntentDetector(detector))
			}

			if dbPath != "" {
				store, err := sqlite.Open(dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, orchestration.WithSessionStore(store))
			}

			orchestrator, err := orchestration.NewOrchestrator(graph, opts...)
			if err != nil {
				return err
			}

			return runConsole(cmd, orchestrator, sessionID)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "scenario file (json or yaml)")
	cmd.Flags().StringVar(&templatesDir, "templates", "", "directory of phrase template json files")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "intent rules json file (optional)")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: random)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite session database (default: in-memory)")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "strictness 1-10 (default: from environment)")
	cmd.MarkFlagRequired("scenario")
	cmd.MarkFlagRequired("templates")

	return cmd
}

func loadTemplates(dir string) (phrase.Set, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no template files in %s", dir)
	}

	templates := make([]phrase.Template, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", path, err)
		}
		template, err := phrase.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", path, err)
		}
		templates = append(templates, template)
	}
	return phrase.NewSet(templates...)
}

func loadDetector(path string) (*intents.Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read intent rules: %w", err)
	}
	rules, err := intents.ParseRulesJSON(data)
	if err != nil {
		return nil, err
	}
	return intents.NewDetectorFromRules(rules...)
}

func runConsole(cmd *cobra.Command, orchestrator *orchestration.Orchestrator, sessionID string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "session %s, enter frequency|transcript (ctrl-d to end)\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frequency, transcript, found := strings.Cut(line, "|")
		if !found {
			fmt.Fprintln(cmd.ErrOrStderr(), "expected frequency|transcript")
			continue
		}

		result, err := orchestrator.ProcessTranscript(cmd.Context(), sessionID,
			strings.TrimSpace(frequency), strings.TrimSpace(transcript))
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}

		printResult(cmd, result)
	}
	return scanner.Err()
}

func printResult(cmd *cobra.Command, result *orchestration.TransmissionResult) {
	out := cmd.OutOrStdout()
	if result.Phrase != "" {
		fmt.Fprintf(out, "controlador: %s\n", result.Phrase)
	}
	if result.Feedback != "" {
		fmt.Fprintf(out, "instructor:  %s\n", result.Feedback)
	}
	if result.Score != nil {
		fmt.Fprintf(out, "puntaje:     %.0f\n", *result.Score)
	}
	if result.Degraded {
		fmt.Fprintln(out, "(turno degradado)")
	}
	if result.Advisory {
		fmt.Fprintln(out, "(aviso al instructor: varios turnos degradados seguidos)")
	}
	fmt.Fprintf(out, "fase:        %s\n", result.PhaseID)
}
