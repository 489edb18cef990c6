package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shiftline/internal/config"
	"shiftline/internal/db"
	"shiftline/internal/domain"
	"shiftline/internal/engine"
	"shiftline/internal/events"
	"shiftline/internal/migrate"
	"shiftline/internal/repo"
	"shiftline/internal/seed"
	"shiftline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Shiftline CLI",
	Long: `Shiftline spots staffing gaps before they hurt and explains exactly why
each provider can or cannot cover a shift.
Core concepts:
- Workspace: your .shiftline directory holding the SQLite snapshot database.
- Snapshot: providers, credential records, privileges, payer enrollments,
  and shifts, loaded from the warehouse (or 'sl seed' for a demo set).
- Blockers: LICENSE_EXPIRED, ACLS_EXPIRING, NO_PRIVILEGE and friends; a
  provider with zero blockers is eligible.
- Gaps: required minus assigned headcount per shift, with HIGH/MEDIUM/LOW
  risk derived from eligible supply.
- Scenarios: what-if runs ("what if we fix these licenses?") that report
  which shifts become coverable.
- Actions: the mitigation ledger (outreach, credential expedites) with an
  audit event trail, 'sl log tail' to watch it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHIFTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(providerCmd())
	rootCmd.AddCommand(gapsCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(worklistCmd())
	rootCmd.AddCommand(actionCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage eligibility policy config",
		Long:  "Config is the policy rulebook (shiftline.yml): the expiring-credential window, remediation lead times per blocker, and procedure-to-specialty matches used for ranking.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default shiftline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo snapshot into the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := seed.Apply(ctx, r, time.Now()); err != nil {
					return err
				}
				fmt.Println("Seeded demo providers, credentials, and shifts.")
				return nil
			})
		},
	}
	return cmd
}

func providerCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "provider",
		Short: "Inspect providers",
	}
	p.AddCommand(providerListCmd())
	p.AddCommand(providerShowCmd())
	return p
}

func providerListCmd() *cobra.Command {
	var f repo.ProviderFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List providers with credential posture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				providers, _, err := r.ListProviders(ctx, f)
				if err != nil {
					return err
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				factSheets, err := e.BuildFactSheets(snap)
				if err != nil {
					return err
				}
				sheets := map[string]domain.ProviderFactSheet{}
				for _, fs := range factSheets {
					sheets[fs.ProviderID] = fs
				}
				if viper.GetBool("json") {
					return printJSON(providers)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Specialty", "Status", "License", "ACLS", "Privs", "Payers"})
				for _, p := range providers {
					fs := sheets[p.ProviderID]
					tw.AppendRow(table.Row{
						p.ProviderID, p.ProviderName, p.Specialty, p.ProviderStatus,
						daysLabel(fs.LicenseDaysLeft), daysLabel(fs.ACLSDaysLeft),
						fs.ActivePrivilegeCount, fs.ActivePayerCount,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Query, "q", "", "match provider id or name")
	cmd.Flags().StringVar(&f.Specialty, "specialty", "", "specialty filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Sort, "sort", "", "sort column (prefix - for descending)")
	return cmd
}

func providerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <provider-id>",
		Short: "Explain one provider's eligibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				if _, err := r.GetProvider(ctx, args[0]); err != nil {
					return err
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				res, ok, err := e.ExplainProvider(args[0], snap)
				if err != nil {
					return err
				}
				if !ok {
					return repo.ErrNotFound
				}
				return printJSONOrTable(res)
			})
		},
	}
	return cmd
}

func gapsCmd() *cobra.Command {
	var f repo.ShiftFilter
	var riskLevel string
	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "List staffing gaps with risk levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				shifts, _, err := r.ListShifts(ctx, f)
				if err != nil {
					return err
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				var gaps []domain.StaffingGap
				for _, s := range shifts {
					g, err := e.ClassifyGap(s, snap)
					if err != nil {
						return err
					}
					if riskLevel != "" && g.RiskLevel != riskLevel {
						continue
					}
					gaps = append(gaps, g)
				}
				if viper.GetBool("json") {
					return printJSON(gaps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Shift", "Facility", "Start", "Req", "Asg", "Eligible", "Gap", "Risk"})
				for _, g := range gaps {
					tw.AppendRow(table.Row{
						g.ShiftID, g.FacilityID, g.StartTS,
						g.RequiredCount, g.AssignedCount, g.EligibleProviderCount, g.GapCount, g.RiskLevel,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.FacilityID, "facility", "", "facility filter")
	cmd.Flags().StringVar(&f.ProcedureCode, "procedure", "", "procedure code filter")
	cmd.Flags().StringVar(&riskLevel, "risk", "", "risk level filter (HIGH, MEDIUM, LOW)")
	return cmd
}

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <shift-id>",
		Short: "Explain per-provider eligibility for a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				shift, err := r.GetShift(ctx, args[0])
				if err != nil {
					return err
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				elig, err := e.EvaluateShiftEligibility(shift, snap, nil)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(elig)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Provider", "Eligible", "Blockers", "Ready In"})
				for _, p := range elig.Providers {
					ready := ""
					if p.TimeToReadyDays != nil {
						ready = fmt.Sprintf("%dd", *p.TimeToReadyDays)
					}
					tags := make([]string, 0, len(p.Blockers))
					for _, b := range p.Blockers {
						tags = append(tags, string(b))
					}
					tw.AppendRow(table.Row{p.ProviderID, p.IsEligible, strings.Join(tags, ","), ready})
				}
				tw.Render()
				fmt.Printf("Eligible: %d, recommended: %s\n", elig.EligibleProviderCount, strings.Join(elig.RecommendedProviders, ", "))
				return nil
			})
		},
	}
	return cmd
}

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend <shift-id>",
		Short: "Rank providers for a shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				shift, err := r.GetShift(ctx, args[0])
				if err != nil {
					return err
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				elig, err := e.EvaluateShiftEligibility(shift, snap, nil)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"shift_id":                shift.ShiftID,
					"eligible_provider_count": elig.EligibleProviderCount,
					"recommended_providers":   elig.RecommendedProviders,
				})
			})
		},
	}
	return cmd
}

func simulateCmd() *cobra.Command {
	var shiftIDs, fixLicense, fixACLS, assumePrivilege, assumePayer []string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a what-if coverage scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(shiftIDs) == 0 {
				return fmt.Errorf("--shift required at least once")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				if len(shiftIDs) > e.Config.Scenario.MaxShiftsPerRun {
					return fmt.Errorf("at most %d shifts per run", e.Config.Scenario.MaxShiftsPerRun)
				}
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				cov, err := e.Simulate(ctx, snap, shiftIDs, domain.ScenarioAssumptions{
					FixLicense:      fixLicense,
					FixACLS:         fixACLS,
					AssumePrivilege: assumePrivilege,
					AssumePayer:     assumePayer,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cov)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Shift", "Status", "Base", "Scenario", "Delta", "Changes"})
				for _, res := range cov.Results {
					tw.AppendRow(table.Row{
						res.ShiftID, res.Status, res.BaselineCoverable, res.ScenarioCoverable,
						res.DeltaCoverable, strings.Join(res.ScenarioChanges, "; "),
					})
				}
				tw.Render()
				fmt.Printf("Coverable: %d baseline, %d under scenario (+%d)\n",
					cov.BaselineCoverableCount, cov.ScenarioCoverableCount, cov.DeltaCoverableCount)
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&shiftIDs, "shift", []string{}, "shift id (repeatable)")
	cmd.Flags().StringArrayVar(&fixLicense, "fix-license", []string{}, "assume this provider's license is fixed (repeatable)")
	cmd.Flags().StringArrayVar(&fixACLS, "fix-acls", []string{}, "assume this provider's ACLS is fixed (repeatable)")
	cmd.Flags().StringArrayVar(&assumePrivilege, "assume-privilege", []string{}, "assume this provider is privileged (repeatable)")
	cmd.Flags().StringArrayVar(&assumePayer, "assume-payer", []string{}, "assume this provider is payer-enrolled (repeatable)")
	return cmd
}

func worklistCmd() *cobra.Command {
	w := &cobra.Command{
		Use:   "worklist",
		Short: "Operational worklists",
	}
	w.AddCommand(worklistUncoverableCmd())
	w.AddCommand(worklistExpiringCmd())
	w.AddCommand(worklistBlockedCmd())
	return w
}

func worklistUncoverableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uncoverable",
		Short: "Shifts with a gap and no eligible providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				items, err := e.UncoverableShifts(snap)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func worklistExpiringCmd() *cobra.Command {
	var bucket string
	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "Credentials by expiration risk bucket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				items, err := e.ExpiringCredentials(snap, bucket)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Provider", "Name", "Credential", "Days Left", "Bucket"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ProviderID, c.ProviderName, c.CredType, daysLabel(c.DaysLeft), c.RiskBucket})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bucket, "bucket", "", "bucket filter (EXPIRED, 0-14, 15-30, 31-90, >90)")
	return cmd
}

func worklistBlockedCmd() *cobra.Command {
	var blocker string
	cmd := &cobra.Command{
		Use:   "blocked",
		Short: "Ineligible providers and their blockers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if blocker != "" && !validBlockerKind(blocker) {
				return fmt.Errorf("unknown blocker kind %q", blocker)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, r repo.Repo) error {
				snap, err := r.LoadSnapshot(ctx)
				if err != nil {
					return err
				}
				items, err := e.BlockedProviders(snap, domain.BlockerKind(blocker))
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&blocker, "blocker", "", "blocker kind filter")
	return cmd
}

func actionCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "action",
		Short: "Manage mitigation actions",
		Long:  "Actions are the mitigation ledger: outreach, credential expedites, privilege requests, and payer follow-ups tied to shifts or providers, each change audited.",
	}
	a.AddCommand(actionAddCmd())
	a.AddCommand(actionListCmd())
	a.AddCommand(actionUpdateCmd())
	return a
}

func actionAddCmd() *cobra.Command {
	var actionType, shiftID, providerID, note string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a mitigation action",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				actor := viper.GetString("actor-id")
				now := time.Now().UTC().Format(time.RFC3339)
				action := domain.RiskAction{
					ActionID:   uuid.NewString(),
					ActionType: actionType,
					Status:     "OPEN",
					ShiftID:    optionalArg(shiftID),
					ProviderID: optionalArg(providerID),
					Note:       note,
					CreatedBy:  actor,
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.InsertRiskActionTx(ctx, tx, action); err != nil {
					return err
				}
				w := events.Writer{DB: r.DB}
				if err := w.Append(ctx, tx, "action.create", "action", action.ActionID, actor, events.EventPayload{
					"action_type": action.ActionType,
				}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				return printJSONOrTable(action)
			})
		},
	}
	cmd.Flags().StringVar(&actionType, "type", "", "action type (OUTREACH, CREDENTIAL_EXPEDITE, PRIVILEGE_REQUEST, PAYER_ENROLLMENT_FOLLOWUP)")
	cmd.Flags().StringVar(&shiftID, "shift", "", "shift id")
	cmd.Flags().StringVar(&providerID, "provider", "", "provider id")
	cmd.Flags().StringVar(&note, "note", "", "note")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func actionListCmd() *cobra.Command {
	var f repo.ActionFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mitigation actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, _, err := r.ListRiskActions(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.ActionType, "type", "", "action type filter")
	cmd.Flags().StringVar(&f.ShiftID, "shift", "", "shift filter")
	cmd.Flags().StringVar(&f.ProviderID, "provider", "", "provider filter")
	return cmd
}

func actionUpdateCmd() *cobra.Command {
	var status, note string
	cmd := &cobra.Command{
		Use:   "update <action-id>",
		Short: "Update a mitigation action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				actor := viper.GetString("actor-id")
				var statusPtr, notePtr *string
				if cmd.Flags().Changed("status") {
					statusPtr = &status
				}
				if cmd.Flags().Changed("note") {
					notePtr = &note
				}
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				now := time.Now().UTC().Format(time.RFC3339)
				if err := r.UpdateRiskActionTx(ctx, tx, args[0], statusPtr, notePtr, now); err != nil {
					return err
				}
				w := events.Writer{DB: r.DB}
				if err := w.Append(ctx, tx, "action.update", "action", args[0], actor, events.EventPayload{
					"status": status,
				}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				a, err := r.GetRiskAction(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status (OPEN, IN_PROGRESS, RESOLVED)")
	cmd.Flags().StringVar(&note, "note", "", "new note")
	return cmd
}

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyDeleteCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				actor := viper.GetString("actor-id")
				raw := uuid.NewString()
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   actor,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.InsertAPIKey(ctx, tx, key); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				// The raw key is shown once and never stored.
				return printJSONOrTable(map[string]string{
					"id":      key.ID,
					"actor":   key.ActorID,
					"api_key": raw,
				})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "log",
		Short: "Audit event log",
	}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacyActor bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				With().Timestamp().Logger()
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("SHIFTLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacyActor,
				Logger:                 logger,
			}
			if authCfg.JWTSecret == "" && !allowLegacyActor {
				return fmt.Errorf("SHIFTLINE_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor for local use)")
			}
			r := repo.Repo{DB: conn}
			handler, err := server.New(server.Config{
				Engine:   engine.New(cfg),
				Repo:     r,
				Events:   events.Writer{DB: conn},
				BasePath: basePath,
				Auth:     authCfg,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving Shiftline API (OpenAPI at {base}/openapi.json, Swagger UI at /docs)")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	cmd.Flags().BoolVar(&allowLegacyActor, "allow-legacy-actor", false, "accept the X-Actor-Id header without auth (local use only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return fn(ctx, engine.New(cfg), repo.Repo{DB: conn})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validBlockerKind(s string) bool {
	for _, k := range domain.BlockerKinds() {
		if string(k) == s {
			return true
		}
	}
	return false
}

func daysLabel(d *int) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%dd", *d)
}

func optionalArg(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
