package main

import (
    "fmt"
    "os"

    "github.com/jszwec/csvutil"
    "github.com/spf13/cobra"

    "supplygw/internal/api"
    "supplygw/internal/model"
)

var exportOut string

func newExportCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "export",
        Short: "Export stored records as CSV",
    }

    branches := &cobra.Command{
        Use:   "branches <supplier-id>",
        Short: "Export a supplier's branches",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            return exportRun(cmd, args[0], "branches")
        },
    }
    locations := &cobra.Command{
        Use:   "locations <supplier-id>",
        Short: "Export a supplier's locations",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            return exportRun(cmd, args[0], "locations")
        },
    }

    for _, c := range []*cobra.Command{branches, locations} {
        c.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
        cmd.AddCommand(c)
    }
    return cmd
}

func exportRun(cmd *cobra.Command, supplierID, entity string) error {
    srvDeps, err := api.NewServer(globalCfg, logger)
    if err != nil {
        return fmt.Errorf("init engine: %w", err)
    }

    var b []byte
    var count int
    switch entity {
    case "branches":
        all := []model.Branch{}
        cursor := ""
        for {
            page, next, err := srvDeps.Store.ListBranches(cmd.Context(), supplierID, cursor, 500)
            if err != nil {
                return fmt.Errorf("list branches: %w", err)
            }
            all = append(all, page...)
            if next == "" {
                break
            }
            cursor = next
        }
        count = len(all)
        b, err = csvutil.Marshal(all)
    case "locations":
        all := []model.Location{}
        cursor := ""
        for {
            page, next, err := srvDeps.Store.ListLocations(cmd.Context(), supplierID, cursor, 500)
            if err != nil {
                return fmt.Errorf("list locations: %w", err)
            }
            all = append(all, page...)
            if next == "" {
                break
            }
            cursor = next
        }
        count = len(all)
        b, err = csvutil.Marshal(all)
    }
    if err != nil {
        return fmt.Errorf("encode csv: %w", err)
    }

    if exportOut == "" {
        _, err = os.Stdout.Write(b)
        return err
    }
    if err := os.WriteFile(exportOut, b, 0o644); err != nil {
        return fmt.Errorf("write %s: %w", exportOut, err)
    }
    fmt.Printf("wrote %d %s to %s\n", count, entity, exportOut)
    return nil
}
