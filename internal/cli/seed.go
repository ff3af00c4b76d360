package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// SeedFile is the YAML layout of dev seed data.
//
//	settings:
//	  checkout_threshold: 10
//	  max_re_tags: 3
//	identities:
//	  - {uid: "04A1B2C3", person_id: stu-1, role: student, display_name: Sora}
//	reservations:
//	  - {student_id: stu-1, teacher_id: tch-1, start_at: 2026-10-19T10:00:00Z, end_at: 2026-10-19T10:50:00Z, confirmed: true}
type SeedFile struct {
	Settings     *types.Settings     `yaml:"settings"`
	Identities   []types.Identity    `yaml:"identities"`
	Reservations []types.Reservation `yaml:"reservations"`
}

type SeedResult struct {
	Settings     bool `json:"settings"`
	Identities   int  `json:"identities"`
	Reservations int  `json:"reservations"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		file  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed --file seed.yaml",
		Short: "Load identities, reservations and settings from YAML",
		Long: `Load dev seed data from a YAML file.

Identities are upserted (use --force to move UIDs that already have taps).
Reservations are appended; seeding the same file twice duplicates them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			seed, err := loadSeedFile(file)
			if err != nil {
				return err
			}

			cfg := rootOpts.config()
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := applySeed(cmd.Context(), a, seed, force)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	cmd.Flags().BoolVar(&force, "force", false, "re-register UIDs that already have tag logs")

	return cmd
}

func loadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

func applySeed(ctx context.Context, a *app, seed SeedFile, force bool) (SeedResult, error) {
	var res SeedResult
	if seed.Settings != nil {
		if _, err := a.settings.Update(ctx, *seed.Settings); err != nil {
			return res, fmt.Errorf("seed settings: %w", err)
		}
		res.Settings = true
	}
	for _, id := range seed.Identities {
		if _, err := a.identities.Register(ctx, types.RegisterIdentityRequest{Identity: id, Force: force}); err != nil {
			return res, fmt.Errorf("seed identity %s: %w", id.PersonID, err)
		}
		res.Identities++
	}
	for _, r := range seed.Reservations {
		if !r.EndAt.After(r.StartAt) {
			return res, fmt.Errorf("seed reservation %s/%s: end_at must be after start_at", r.StudentID, r.TeacherID)
		}
		if err := a.schedule.AddReservation(ctx, r); err != nil {
			return res, fmt.Errorf("seed reservation: %w", err)
		}
		res.Reservations++
	}
	a.log.Info("seed applied",
		"identities", res.Identities,
		"reservations", res.Reservations,
		"settings", res.Settings,
	)
	return res, nil
}
