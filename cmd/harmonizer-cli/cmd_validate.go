package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jenezis/harmonizer/client"
)

func newValidateCmd() *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "validate <batch.json>",
		Short: "Filter an extracted entity/relation batch against the ontology",
		Long: "Reads a JSON object with \"entities\" and \"relations\" arrays and prints the records that conform.\n" +
			"With --schema, the batch is checked against a local YAML or JSON schema instead of the server's.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readBatch(args[0])
			if err != nil {
				return err
			}
			if schemaPath != "" {
				if req.Schema, err = readSchema(schemaPath); err != nil {
					return err
				}
			}

			resp, err := apiClient.Ontology.Validate(context.Background(), *req)
			if err != nil {
				fatal("validate", err)
			}
			switch flagFmt {
			case "table":
				formatTable([]string{"KIND", "KEPT", "DROPPED"}, [][]string{
					{"entities", fmt.Sprintf("%d", len(resp.Entities)), fmt.Sprintf("%d", resp.DroppedEntities)},
					{"relations", fmt.Sprintf("%d", len(resp.Relations)), fmt.Sprintf("%d", resp.DroppedRelations)},
				})
				if resp.Bypassed {
					fmt.Println(warnColor.Sprint("\nno schema configured; batch passed through unchanged"))
				}
			case "quiet":
				formatQuiet(fmt.Sprintf("%d", resp.DroppedEntities+resp.DroppedRelations))
			default:
				formatJSON(resp)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Schema file (YAML or JSON) overriding the server's")
	return cmd
}

func readBatch(path string) (*client.ValidateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var req client.ValidateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	if req.Entities == nil {
		req.Entities = []json.RawMessage{}
	}
	if req.Relations == nil {
		req.Relations = []json.RawMessage{}
	}
	return &req, nil
}

// readSchema accepts YAML, which also covers JSON documents.
func readSchema(path string) (*client.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s client.Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if len(s.EntityTypes) == 0 && len(s.RelationTypes) == 0 {
		return nil, fmt.Errorf("schema %s lists no entity or relation types", path)
	}
	return &s, nil
}
