package natives

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"langvm/internal/object"
	"langvm/internal/vm"
)

// sqlite_open/sqlite_exec/sqlite_query/sqlite_close/sqlite_stat, ported
// from estevaofon-noxy/internal/vm/vm.go's sqlite_open/sqlite_exec/
// sqlite_query native group (lines ~2263-2730). The teacher returns a
// struct-instance handle with named fields (handle, open, rows_affected,
// ...); this language has no struct/instance kind, so a handle is a plain
// Integer id into a process-wide table and a query's rows collapse into
// one tab/newline-joined String — the same simplification sqlite_stat's
// humanize.Bytes formatting is meant to illustrate (one scalar back per
// call, not a record).
type sqliteRegistry struct {
	mu      sync.Mutex
	next    int64
	handles map[int64]*sql.DB
}

func registerSQLite(machine *vm.VM) {
	reg := &sqliteRegistry{handles: make(map[int64]*sql.DB)}

	machine.DefineNative("sqlite_open", 1, func(args []object.Object) (object.Object, error) {
		path := args[0].Value.String()
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return object.Object{}, fmt.Errorf("sqlite_open: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return object.Object{}, fmt.Errorf("sqlite_open: %w", err)
		}

		reg.mu.Lock()
		id := reg.next
		reg.next++
		reg.handles[id] = db
		reg.mu.Unlock()

		return object.New(object.Integer(id)), nil
	})

	machine.DefineNative("sqlite_close", 1, func(args []object.Object) (object.Object, error) {
		handle := args[0].Value.Int
		reg.mu.Lock()
		defer reg.mu.Unlock()
		if db, ok := reg.handles[handle]; ok {
			db.Close()
			delete(reg.handles, handle)
		}
		return object.NewNone(), nil
	})

	machine.DefineNative("sqlite_exec", 2, func(args []object.Object) (object.Object, error) {
		handle := args[0].Value.Int
		stmt := args[1].Value.String()

		db, ok := reg.db(handle)
		if !ok {
			return object.Object{}, fmt.Errorf("sqlite_exec: invalid handle %d", handle)
		}
		result, err := db.Exec(stmt)
		if err != nil {
			return object.Object{}, fmt.Errorf("sqlite_exec: %w", err)
		}
		rows, _ := result.RowsAffected()
		return object.New(object.Integer(rows)), nil
	})

	machine.DefineNative("sqlite_query", 2, func(args []object.Object) (object.Object, error) {
		handle := args[0].Value.Int
		stmt := args[1].Value.String()

		db, ok := reg.db(handle)
		if !ok {
			return object.Object{}, fmt.Errorf("sqlite_query: invalid handle %d", handle)
		}
		rows, err := db.Query(stmt)
		if err != nil {
			return object.Object{}, fmt.Errorf("sqlite_query: %w", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return object.Object{}, fmt.Errorf("sqlite_query: %w", err)
		}

		var out strings.Builder
		scratch := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range scratch {
			ptrs[i] = &scratch[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				return object.Object{}, fmt.Errorf("sqlite_query: %w", err)
			}
			for i, v := range scratch {
				if i > 0 {
					out.WriteByte('\t')
				}
				out.WriteString(formatSQLValue(v))
			}
			out.WriteByte('\n')
		}
		return object.New(object.String(out.String())), nil
	})

	machine.DefineNative("sqlite_stat", 1, func(args []object.Object) (object.Object, error) {
		handle := args[0].Value.Int
		db, ok := reg.db(handle)
		if !ok {
			return object.Object{}, fmt.Errorf("sqlite_stat: invalid handle %d", handle)
		}
		var pageCount, pageSize int64
		if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
			return object.Object{}, fmt.Errorf("sqlite_stat: %w", err)
		}
		if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
			return object.Object{}, fmt.Errorf("sqlite_stat: %w", err)
		}
		size := uint64(pageCount * pageSize)
		return object.New(object.String(humanize.Bytes(size))), nil
	})
}

func (r *sqliteRegistry) db(handle int64) (*sql.DB, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.handles[handle]
	return db, ok
}

func formatSQLValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
