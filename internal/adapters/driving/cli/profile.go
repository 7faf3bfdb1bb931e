package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apidex-labs/apidex/internal/core/domain"
)

var (
	profileP50    float64
	profileP95    float64
	profileSLO    float64
	profileVolume int64
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage endpoint performance profiles",
	Long: `Performance profiles feed the ranking pipeline's performance and
popularity signals. Profiles are produced by an external observability
pipeline; these commands import and inspect them.`,
}

var profileSetCmd = &cobra.Command{
	Use:   "set [doc-id]",
	Short: "Set the performance profile for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileSet,
}

var profileGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show the performance profile for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileGet,
}

func init() {
	profileSetCmd.Flags().Float64Var(&profileP50, "p50", 0, "median latency in milliseconds")
	profileSetCmd.Flags().Float64Var(&profileP95, "p95", 0, "95th percentile latency in milliseconds")
	profileSetCmd.Flags().Float64Var(&profileSLO, "slo", 0, "availability SLO in [0,1]")
	profileSetCmd.Flags().Int64Var(&profileVolume, "volume", 0, "call volume over the last 30 days")

	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileGetCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	if profileStore == nil {
		return errors.New("profile store not configured")
	}

	if profileSLO < 0 || profileSLO > 1 {
		return fmt.Errorf("slo must be in [0,1]: %w", domain.ErrInvalidInput)
	}

	profile := domain.PerformanceProfile{
		DocumentID:      args[0],
		P50LatencyMs:    profileP50,
		P95LatencyMs:    profileP95,
		AvailabilitySLO: profileSLO,
		CallVolume30d:   profileVolume,
	}

	if err := profileStore.SaveProfile(cmd.Context(), &profile); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	cmd.Printf("Profile saved for %s\n", args[0])
	return nil
}

func runProfileGet(cmd *cobra.Command, args []string) error {
	if profileStore == nil {
		return errors.New("profile store not configured")
	}

	profile, err := profileStore.GetProfile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
