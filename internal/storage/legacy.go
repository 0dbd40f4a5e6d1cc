package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// legacyTable describes a table written by the earlier desktop release and
// how its columns land in ours. Rows keep their ids so expenses still point
// at the right employee.
type legacyTable struct {
	from, to string
	columns []legacyColumn
	// required source columns; a table missing any of them is left alone.
	required []string
	where    string
}

type legacyColumn struct {
	src, dst string
	// expr wraps the source column; {} stands for its name.
	expr string
}

// isoToTimestamp rewrites a millisecond ISO string into timestampLayout.
const isoToTimestamp = `COALESCE(strftime('%Y-%m-%dT%H:%M:%f000000Z', {}), {})`

var legacyTables = []legacyTable{
	{
		from: "empleados", to: "employees",
		required: []string{"id", "nombre", "fechaRegistro"},
		columns: []legacyColumn{
			{src: "id", dst: "id"},
			{src: "DNI", dst: "national_id"},
			{src: "nombre", dst: "given_name"},
			{src: "apellido", dst: "family_name"},
			{src: "address", dst: "address"},
			{src: "tel", dst: "phone"},
			{src: "edad", dst: "age"},
			{src: "fechaRegistro", dst: "registered_at", expr: isoToTimestamp},
			{src: "activo", dst: "active", expr: `COALESCE({}, 1)`},
			{src: "fechaDeshabilitacion", dst: "deactivated_at", expr: isoToTimestamp},
		},
	},
	{
		from: "gastos", to: "expenses",
		required: []string{"id", "empleadoId", "monto", "descripcion", "fecha"},
		columns: []legacyColumn{
			{src: "id", dst: "id"},
			{src: "empleadoId", dst: "employee_id"},
			{src: "monto", dst: "amount"},
			{src: "descripcion", dst: "description"},
			{src: "fecha", dst: "date"},
			{src: "categoria", dst: "category"},
			{src: "ruta", dst: "route"},
		},
		where: `empleadoId IN (SELECT id FROM employees)`,
	},
	{
		from: "usuarios", to: "credentials",
		required: []string{"nickname", "password"},
		columns: []legacyColumn{
			{src: "nickname", dst: "nickname"},
			{src: "password", dst: "password_hash"},
			{src: "pregunta_seguridad", dst: "security_question"},
			{src: "respuesta_seguridad", dst: "answer_hash"},
		},
	},
}

// importLegacy copies rows from the earlier release's tables into empty
// tables of ours, then renames each source to <name>_imported so the copy
// runs once. Stored hashes are carried over verbatim.
func (db *DB) importLegacy() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("import legacy tables: %w", err)
	}
	imported := false
	for _, t := range legacyTables {
		done, err := importLegacyTable(tx, t)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("import %s into %s: %w", t.from, t.to, err)
		}
		imported = imported || done
	}
	if !imported {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import legacy tables: %w", err)
	}
	return nil
}

func importLegacyTable(tx *sql.Tx, t legacyTable) (bool, error) {
	var name string
	err := tx.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, t.from).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var rows int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM ` + t.to).Scan(&rows); err != nil {
		return false, err
	}
	if rows > 0 {
		return false, nil
	}

	have, err := txColumns(tx, t.from)
	if err != nil {
		return false, err
	}
	for _, c := range t.required {
		if _, ok := have[c]; !ok {
			return false, nil
		}
	}

	var dst, src []string
	for _, c := range t.columns {
		if _, ok := have[c.src]; !ok {
			continue
		}
		dst = append(dst, c.dst)
		if c.expr == "" {
			src = append(src, c.src)
			continue
		}
		src = append(src, strings.ReplaceAll(c.expr, "{}", c.src))
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s`,
		t.to, strings.Join(dst, ", "), strings.Join(src, ", "), t.from)
	if t.where != "" {
		stmt += ` WHERE ` + t.where
	}
	if _, err := tx.Exec(stmt); err != nil {
		return false, err
	}
	if _, err := tx.Exec(fmt.Sprintf(`ALTER TABLE %s RENAME TO %s_imported`, t.from, t.from)); err != nil {
		return false, err
	}
	return true, nil
}

func txColumns(tx *sql.Tx, table string) (map[string]struct{}, error) {
	rows, err := tx.Query(fmt.Sprintf(`SELECT name FROM pragma_table_info('%s')`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}
