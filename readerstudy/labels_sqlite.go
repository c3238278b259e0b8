package readerstudy

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const labelSchema = `
CREATE TABLE IF NOT EXISTS labels (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	image_id  TEXT NOT NULL,
	method    TEXT NOT NULL,
	category  TEXT NOT NULL,
	value     TEXT NOT NULL,
	is_choice INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_labels_image ON labels(image_id);
`

func openLabelDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open label db: %w", err)
	}
	if _, err := db.Exec(labelSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init label db: %w", err)
	}
	return db, nil
}

// writeSQLiteLabels replaces the stored labels with rows in one transaction.
func writeSQLiteLabels(path string, rows []LabelRow, categories []string) error {
	db, err := openLabelDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM labels`); err != nil {
		return fmt.Errorf("clear labels: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO labels (image_id, method, category, value, is_choice) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		for _, name := range categories {
			v, ok := r.Scores[name]
			if !ok {
				continue
			}
			if _, err := stmt.Exec(r.ImageID, r.Method, name, v.String(), v.IsChoice); err != nil {
				return fmt.Errorf("insert label %s/%s/%s: %w", r.ImageID, r.Method, name, err)
			}
		}
	}
	return tx.Commit()
}

func readSQLiteLabels(path string) ([]LabelRow, []string, error) {
	db, err := openLabelDB(path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	res, err := db.Query(`SELECT image_id, method, category, value, is_choice FROM labels ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query labels: %w", err)
	}
	defer res.Close()

	var (
		rows  []LabelRow
		order []string
		index = make(map[[2]string]int)
	)
	for res.Next() {
		var (
			imageID, method, category, value string
			isChoice                         bool
		)
		if err := res.Scan(&imageID, &method, &category, &value, &isChoice); err != nil {
			return nil, nil, fmt.Errorf("scan label: %w", err)
		}
		key := [2]string{imageID, method}
		i, ok := index[key]
		if !ok {
			i = len(rows)
			index[key] = i
			rows = append(rows, LabelRow{ImageID: imageID, Method: method, Scores: map[string]Score{}})
		}
		v := ChoiceScore(value)
		if !isChoice {
			v = ParseScore(value)
		}
		rows[i].Scores[category] = v
		if !containsString(order, category) {
			order = append(order, category)
		}
	}
	if err := res.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate labels: %w", err)
	}
	return rows, order, nil
}
