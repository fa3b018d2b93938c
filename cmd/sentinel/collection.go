package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sentineldb/sentinel/pkg/query"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/store"
	"github.com/sentineldb/sentinel/pkg/wal"
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage documents in a collection",
}

// walOverridesFromFlags builds a store.CollectionOverrides from the WAL
// override flags shared by collection create.
func walOverridesFromFlags(cmd *cobra.Command) *store.CollectionOverrides {
	maxSize, _ := cmd.Flags().GetInt64("max-wal-size")
	maxRecords, _ := cmd.Flags().GetInt("max-wal-records")
	writeMode, _ := cmd.Flags().GetString("write-mode")
	rotationCodec, _ := cmd.Flags().GetString("rotation-codec")
	persist, _ := cmd.Flags().GetBool("persist-overrides")

	if maxSize == 0 && maxRecords == 0 && writeMode == "" && rotationCodec == "" {
		return nil
	}
	return &store.CollectionOverrides{
		WAL: wal.Config{
			MaxWALSizeBytes:   maxSize,
			MaxRecordsPerFile: maxRecords,
			WriteMode:         wal.WriteMode(writeMode),
			RotationCodec:     rotationCodec,
		},
		PersistOverrides: persist,
	}
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create (or open) a collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		if _, err := s.Collection(name, walOverridesFromFlags(cmd)); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		fmt.Printf("✓ Collection ready: %s\n", name)
		return nil
	},
}

var collectionInsertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Insert a new document",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		id, _ := cmd.Flags().GetString("id")
		data, _ := cmd.Flags().GetString("data")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		if err := c.Insert(id, json.RawMessage(data)); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		fmt.Printf("✓ Document inserted: %s\n", id)
		return nil
	},
}

var collectionGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Read and verify one document",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		id, _ := cmd.Flags().GetString("id")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		env, err := c.Get(id, verificationOptionsFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		buf, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		fmt.Println(string(buf))
		return nil
	},
}

var collectionUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace an existing document's data",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		id, _ := cmd.Flags().GetString("id")
		data, _ := cmd.Flags().GetString("data")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		if err := c.Update(id, json.RawMessage(data)); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}

		fmt.Printf("✓ Document updated: %s\n", id)
		return nil
	},
}

var collectionUpsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Insert a document, or update it if it already exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		id, _ := cmd.Flags().GetString("id")
		data, _ := cmd.Flags().GetString("data")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		inserted, err := c.Upsert(id, json.RawMessage(data))
		if err != nil {
			return fmt.Errorf("failed to upsert document: %w", err)
		}

		if inserted {
			fmt.Printf("✓ Document inserted: %s\n", id)
		} else {
			fmt.Printf("✓ Document updated: %s\n", id)
		}
		return nil
	},
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Soft-delete a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		id, _ := cmd.Flags().GetString("id")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		if err := c.Delete(id); err != nil {
			if !sentinelerr.Is(err, sentinelerr.KindDocumentNotFound) {
				return fmt.Errorf("failed to delete document: %w", err)
			}
			fmt.Printf("✓ Document already absent: %s\n", id)
			return nil
		}

		fmt.Printf("✓ Document deleted: %s\n", id)
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live document ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		ids, err := c.List()
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var collectionQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter, sort, and project documents",
	Long: `Query a collection with the filter micro-language:

  field=value      equals
  field>value      greater than
  field<value      less than
  field>=value     greater than or equal
  field<=value     less than or equal
  field~substr     contains
  field^prefix     starts with
  field$suffix     ends with
  field in:v1,v2   member of
  field exists:true|false

Values are parsed as JSON first, falling back to a raw string.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("store")
		name, _ := cmd.Flags().GetString("name")
		filterExprs, _ := cmd.Flags().GetStringArray("filter")
		sortExpr, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		projectExpr, _ := cmd.Flags().GetString("project")

		filters := make([]query.Filter, 0, len(filterExprs))
		for _, expr := range filterExprs {
			f, err := parseFilterExpr(expr)
			if err != nil {
				return fmt.Errorf("bad --filter %q: %w", expr, err)
			}
			filters = append(filters, f)
		}

		q := query.Query{Filters: filters, Limit: limit, Offset: offset}
		if projectExpr != "" {
			q.Projection = strings.Split(projectExpr, ",")
		}
		if sortExpr != "" {
			field, order, ok := strings.Cut(sortExpr, ":")
			if !ok {
				order = "asc"
			}
			q.Sort = &query.Sort{Field: field, Order: query.Order(order)}
		}

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		c, err := s.Collection(name, nil)
		if err != nil {
			return fmt.Errorf("failed to open collection: %w", err)
		}

		src, err := c.All(verificationOptionsFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("failed to open document stream: %w", err)
		}
		defer src.Close()

		results, err := q.RunNamed(src, name)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}

		for _, r := range results {
			buf, err := json.Marshal(struct {
				ID   string         `json:"id"`
				Data map[string]any `json:"data"`
			}{ID: r.ID, Data: r.Data})
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Println(string(buf))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{
		collectionCreateCmd, collectionInsertCmd, collectionGetCmd, collectionUpdateCmd,
		collectionUpsertCmd, collectionDeleteCmd, collectionListCmd, collectionQueryCmd,
	} {
		c.Flags().String("store", "", "Store root path")
		c.Flags().String("name", "", "Collection name")
		c.Flags().String("passphrase", "", "Passphrase gating the signing key")
		_ = c.MarkFlagRequired("store")
		_ = c.MarkFlagRequired("name")
	}

	collectionCreateCmd.Flags().Int64("max-wal-size", 0, "Override: max WAL size in bytes before rotation")
	collectionCreateCmd.Flags().Int("max-wal-records", 0, "Override: max records per WAL file before rotation")
	collectionCreateCmd.Flags().String("write-mode", "", "Override: WAL write mode (strict|relaxed)")
	collectionCreateCmd.Flags().String("rotation-codec", "", "Override: rotated-file compression codec (zst|lz4|br|deflate|gz)")
	collectionCreateCmd.Flags().Bool("persist-overrides", false, "Persist WAL overrides to collection metadata")

	for _, c := range []*cobra.Command{collectionInsertCmd, collectionUpdateCmd, collectionUpsertCmd} {
		c.Flags().String("id", "", "Document id")
		c.Flags().String("data", "", "Document data as a JSON value")
		_ = c.MarkFlagRequired("id")
		_ = c.MarkFlagRequired("data")
	}

	for _, c := range []*cobra.Command{collectionGetCmd, collectionDeleteCmd} {
		c.Flags().String("id", "", "Document id")
		_ = c.MarkFlagRequired("id")
	}

	addVerificationFlags(collectionGetCmd)
	addVerificationFlags(collectionQueryCmd)

	collectionQueryCmd.Flags().StringArray("filter", nil, `Filter expression, e.g. "age>=30" (repeatable)`)
	collectionQueryCmd.Flags().String("sort", "", "Sort field, optionally suffixed :asc or :desc")
	collectionQueryCmd.Flags().Int("limit", 0, "Maximum results (0 for unlimited)")
	collectionQueryCmd.Flags().Int("offset", 0, "Results to skip before collecting")
	collectionQueryCmd.Flags().String("project", "", "Comma-separated fields to project")

	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionInsertCmd)
	collectionCmd.AddCommand(collectionGetCmd)
	collectionCmd.AddCommand(collectionUpdateCmd)
	collectionCmd.AddCommand(collectionUpsertCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionQueryCmd)
}
