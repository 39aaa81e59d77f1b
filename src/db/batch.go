package db

import "context"

// ExecuteBatch runs stmt once per entry in rows. Each inner slice is bound
// positionally, starting at placeholder 1, after clearing the previous
// bindings. It returns the total number of rows affected, and stops at the
// first error.
func ExecuteBatch(ctx context.Context, stmt Statement, rows [][]any) (int64, error) {
	var total int64
	for _, row := range rows {
		if err := bindRow(stmt, row); err != nil {
			return total, err
		}
		n, err := stmt.Exec(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// InsertReturningIDs runs stmt, typically an INSERT ... RETURNING id, once per
// entry in rows and collects the first column of every returned row.
func InsertReturningIDs[ID Number](ctx context.Context, stmt Statement, rows [][]any) ([]ID, error) {
	ids := make([]ID, 0, len(rows))
	for _, row := range rows {
		if err := bindRow(stmt, row); err != nil {
			return nil, err
		}
		cursor, err := stmt.Query(ctx)
		if err != nil {
			return nil, err
		}
		rowIDs, err := CollectIDs[ID](cursor)
		if err != nil {
			return nil, err
		}
		ids = append(ids, rowIDs...)
	}
	return ids, nil
}

// CollectIDs reads the first column of every remaining row of cursor and
// closes it.
func CollectIDs[ID Number](cursor Cursor) ([]ID, error) {
	defer cursor.Close()

	ids := []ID{}
	for cursor.Next() {
		var id ID
		if err := cursor.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func bindRow(stmt Statement, row []any) error {
	stmt.ClearParameters()
	for i, value := range row {
		if err := stmt.Bind(i+1, value); err != nil {
			return err
		}
	}
	return nil
}
