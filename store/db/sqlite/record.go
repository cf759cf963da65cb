package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jeffreyouni/life-butler/store"
)

func (d *DB) CreateRecord(ctx context.Context, create *store.Record) (*store.Record, error) {
	data, err := json.Marshal(create.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal record data")
	}

	stmt := `
		INSERT OR REPLACE INTO record (id, domain, ts, data)
		VALUES (?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt, create.ID, string(create.Domain), create.Timestamp.Unix(), string(data)); err != nil {
		return nil, errors.Wrap(err, "failed to insert record")
	}
	return create, nil
}

func (d *DB) ListRecords(ctx context.Context, find *store.FindRecord) ([]*store.Record, error) {
	where, args := []string{"1 = 1"}, []any{}
	if find.Domain != nil {
		where, args = append(where, "domain = ?"), append(args, string(*find.Domain))
	}
	if find.Start != nil {
		where, args = append(where, "ts >= ?"), append(args, find.Start.Unix())
	}
	if find.End != nil {
		where, args = append(where, "ts < ?"), append(args, find.End.Unix())
	}

	query := `
		SELECT id, domain, ts, data
		FROM record
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY ts ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query records")
	}
	defer rows.Close()

	records := []*store.Record{}
	for rows.Next() {
		var record store.Record
		var domain string
		var ts int64
		var data string
		if err := rows.Scan(&record.ID, &domain, &ts, &data); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		record.Domain = store.Domain(domain)
		record.Timestamp = time.Unix(ts, 0).UTC()
		if err := json.Unmarshal([]byte(data), &record.Data); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal record data for %s", record.ID)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (d *DB) DeleteRecord(ctx context.Context, domain store.Domain, id string) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM record WHERE domain = ? AND id = ?", string(domain), id); err != nil {
		return errors.Wrap(err, "failed to delete record")
	}
	return nil
}
