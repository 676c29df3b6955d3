package main

import (
    "fmt"

    "github.com/spf13/cobra"

    "supplygw/internal/api"
)

func newVerifyCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "verify <supplier-id>",
        Short: "Run the verification sequence against a supplier",
        Long: `Run the full verification sequence (health, locations, availability,
bookings) against a configured supplier and print the step results.
Exits non-zero when the run fails.`,
        Args: cobra.ExactArgs(1),
        RunE: verifyRun,
    }
    return cmd
}

func verifyRun(cmd *cobra.Command, args []string) error {
    srvDeps, err := api.NewServer(globalCfg, logger)
    if err != nil {
        return fmt.Errorf("init engine: %w", err)
    }

    supplierID := args[0]
    res, err := srvDeps.Verifier.Run(cmd.Context(), supplierID)
    if err != nil {
        return fmt.Errorf("verification: %w", err)
    }

    for _, step := range res.Steps {
        mark := "PASS"
        if !step.Passed {
            mark = "FAIL"
        }
        fmt.Printf("%-4s %-14s %s\n", mark, step.Name, step.Detail)
    }
    if !res.Passed {
        return fmt.Errorf("verification failed for supplier %s", supplierID)
    }
    fmt.Printf("supplier %s verified\n", supplierID)
    return nil
}
