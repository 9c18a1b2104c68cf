package store

import (
	"context"
	stdsql "database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/tidwall/gjson"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// ContentPreviews reads rendered previews of the bot's content elements.
type ContentPreviews struct {
	db *stdsql.DB
}

// NewContentPreviews creates a ContentPreviews reader.
func NewContentPreviews(db *stdsql.DB) *ContentPreviews {
	return &ContentPreviews{db: db}
}

// Previews returns the preview text of each known element id in lang.
// When lang has no preview, the first available language is used.
// Unknown ids are omitted.
func (p *ContentPreviews) Previews(ctx context.Context, botID, lang string, ids []string) ([]models.Preview, error) {
	previews := []models.Preview{}
	if len(ids) == 0 {
		return previews, nil
	}

	query, args := builder().Select("id", "previews").
		From(entsql.Table("content_elements")).
		Where(entsql.And(
			entsql.EQ("bot_id", botID),
			entsql.In("id", toArgs(ids)...),
		)).
		OrderBy("id").
		Query()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content elements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan content element: %w", err)
		}
		previews = append(previews, models.Preview{ID: id, Preview: pickPreview(raw, lang)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query content elements: %w", err)
	}
	return previews, nil
}

func pickPreview(raw []byte, lang string) string {
	if lang != "" {
		if v := gjson.GetBytes(raw, gjson.Escape(lang)); v.Exists() {
			return v.String()
		}
	}
	var first string
	gjson.ParseBytes(raw).ForEach(func(_, value gjson.Result) bool {
		first = value.String()
		return false
	})
	return first
}
