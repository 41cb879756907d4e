package cli

import (
	"bytes"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"crmgate/internal/postgrest"
)

func (a *app) idCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "encode and decode virtual ids of compound primary keys",
	}
	cmd.PersistentFlags().String("keys-dir", "", "directory with YAML primary-key catalogs")

	encode := &cobra.Command{
		Use:     "encode <resource> <record-json>",
		Short:   "record → id",
		Example: `  crmgate id encode contact_tags '{"contact_id":1,"tag_id":2}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := a.primaryKey(cmd, args[0])
			if err != nil {
				return err
			}
			var rec postgrest.Record
			dec := gojson.NewDecoder(strings.NewReader(args[1]))
			dec.UseNumber()
			if err := dec.Decode(&rec); err != nil {
				return fmt.Errorf("record must be a JSON object: %w", err)
			}
			id, err := postgrest.EncodeID(rec, pk)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), postgrest.FormatValue(id))
			return nil
		},
	}

	decode := &cobra.Command{
		Use:     "decode <resource> <id>",
		Short:   "id → values of the primary key columns (JSON object)",
		Example: `  crmgate id decode contact_tags '[1,2]'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := a.primaryKey(cmd, args[0])
			if err != nil {
				return err
			}
			values, err := postgrest.DecodeID(args[1], pk)
			if err != nil {
				return err
			}
			// колонки в порядке ключа, поэтому объект собираем руками
			var buf bytes.Buffer
			buf.WriteByte('{')
			for i, col := range pk {
				if i > 0 {
					buf.WriteByte(',')
				}
				k, _ := gojson.Marshal(col)
				v, err := gojson.Marshal(values[i])
				if err != nil {
					return err
				}
				buf.Write(k)
				buf.WriteByte(':')
				buf.Write(v)
			}
			buf.WriteByte('}')
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

func (a *app) primaryKey(cmd *cobra.Command, resource string) (postgrest.PrimaryKey, error) {
	keys, issues, err := buildKeys(cmd.Context(), a.cfg)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, issuesError(issues)
	}
	return keys.PrimaryKey(resource), nil
}
