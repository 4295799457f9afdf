package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ehr/claimcoder/internal/domain/coding"
)

func evaluateCmd() *cobra.Command {
	var (
		file    string
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Code encounters from a JSON or YAML file",
		Long: "Runs the decision tree for one encounter or a list of encounters read from\n" +
			"--file and prints the results as JSON. Reference data comes from DATABASE_URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read encounter file: %w", err)
			}
			inputs, err := decodeEncounters(file, data)
			if err != nil {
				return err
			}

			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			svcs, err := newServices(ctx, cfg, pool, logger)
			if err != nil {
				return err
			}

			var results []*coding.DecisionTreeResult
			if persist {
				decisions, err := svcs.coding.EvaluateBatch(ctx, inputs)
				if err != nil {
					return err
				}
				for _, d := range decisions {
					results = append(results, d.Result)
				}
			} else {
				results = svcs.engine.RunBatch(ctx, inputs, cfg.BatchWorkers)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if len(results) == 1 {
				return enc.Encode(results[0])
			}
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "encounter file (.json, .yaml or .yml)")
	cmd.Flags().BoolVar(&persist, "persist", false, "store decisions as the API does")
	cmd.MarkFlagRequired("file")
	return cmd
}

// decodeEncounters accepts a single encounter or a list, in JSON or YAML by
// file extension.
func decodeEncounters(name string, data []byte) ([]coding.EncounterInput, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("unsupported encounter file type %q", filepath.Ext(name))
	}

	if isList(name, data) {
		var list []coding.EncounterInput
		if err := unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("decode encounters: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("encounter file is empty")
		}
		return list, nil
	}

	var one coding.EncounterInput
	if err := unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode encounter: %w", err)
	}
	return []coding.EncounterInput{one}, nil
}

func isList(name string, data []byte) bool {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return bytes.HasPrefix(bytes.TrimSpace(data), []byte("["))
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil || len(node.Content) == 0 {
		return false
	}
	return node.Content[0].Kind == yaml.SequenceNode
}
