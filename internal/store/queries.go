package store

import "database/sql"

// GetCallable retrieves a callable by ID.
func (s *Store) GetCallable(id NodeID) (*Callable, error) {
	c := &Callable{}
	err := s.db.QueryRow(`
		SELECT id, name, kind FROM callables WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Kind)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetMethodDecl retrieves a method declaration by ID.
func (s *Store) GetMethodDecl(id NodeID) (*MethodDecl, error) {
	d := &MethodDecl{}
	err := s.db.QueryRow(`
		SELECT id, name, default_body FROM method_decls WHERE id = ?
	`, id).Scan(&d.ID, &d.Name, &d.DefaultBody)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SearchCallables finds callables whose name contains the query, sorted by
// name. An empty query lists all callables up to the limit.
func (s *Store) SearchCallables(query string, limit int) ([]Callable, error) {
	rows, err := s.db.Query(`
		SELECT id, name, kind FROM callables
		WHERE name LIKE ?
		ORDER BY name, id
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Callable
	for rows.Next() {
		var c Callable
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetImplementers returns the callables linked to a method declaration.
func (s *Store) GetImplementers(declID NodeID) ([]Callable, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.name, c.kind
		FROM impl_links l
		JOIN callables c ON c.id = l.impl_id
		WHERE l.decl_id = ?
		ORDER BY c.name, c.id
	`, declID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Callable
	for rows.Next() {
		var c Callable
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetImplementedDecls returns the method declarations a callable implements.
func (s *Store) GetImplementedDecls(implID NodeID) ([]MethodDecl, error) {
	rows, err := s.db.Query(`
		SELECT d.id, d.name, d.default_body
		FROM impl_links l
		JOIN method_decls d ON d.id = l.decl_id
		WHERE l.impl_id = ?
		ORDER BY d.name, d.id
	`, implID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MethodDecl
	for rows.Next() {
		var d MethodDecl
		if err := rows.Scan(&d.ID, &d.Name, &d.DefaultBody); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// GetRoots returns callables with no incoming edges, the entry points
// into the call graph.
func (s *Store) GetRoots(limit int) ([]Callable, error) {
	rows, err := s.db.Query(`
		SELECT id, name, kind FROM callables c
		WHERE NOT EXISTS (
			SELECT 1 FROM edges e WHERE e.callee_id = c.id
		)
		ORDER BY name, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Callable
	for rows.Next() {
		var c Callable
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetEdges returns edges joined with endpoint names, sorted by caller then
// callee name. An empty kind returns edges of both kinds.
func (s *Store) GetEdges(kind EdgeKind, limit int) ([]EdgeRow, error) {
	query := `
		SELECT e.caller_id, cr.name, e.callee_id, ce.name, e.kind
		FROM edges e
		JOIN callables cr ON cr.id = e.caller_id
		JOIN callables ce ON ce.id = e.callee_id
	`
	args := []any{}
	if kind != "" {
		query += " WHERE e.kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY cr.name, ce.name, e.caller_id, e.callee_id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanEdgeRows(rows)
}

// GetCallees returns the outgoing edges of a callable.
func (s *Store) GetCallees(id NodeID) ([]EdgeRow, error) {
	rows, err := s.db.Query(`
		SELECT e.caller_id, cr.name, e.callee_id, ce.name, e.kind
		FROM edges e
		JOIN callables cr ON cr.id = e.caller_id
		JOIN callables ce ON ce.id = e.callee_id
		WHERE e.caller_id = ?
		ORDER BY ce.name, e.callee_id
	`, id)
	if err != nil {
		return nil, err
	}
	return scanEdgeRows(rows)
}

// GetCallers returns the incoming edges of a callable.
func (s *Store) GetCallers(id NodeID) ([]EdgeRow, error) {
	rows, err := s.db.Query(`
		SELECT e.caller_id, cr.name, e.callee_id, ce.name, e.kind
		FROM edges e
		JOIN callables cr ON cr.id = e.caller_id
		JOIN callables ce ON ce.id = e.callee_id
		WHERE e.callee_id = ?
		ORDER BY cr.name, e.caller_id
	`, id)
	if err != nil {
		return nil, err
	}
	return scanEdgeRows(rows)
}

func scanEdgeRows(rows *sql.Rows) ([]EdgeRow, error) {
	defer rows.Close()
	var edges []EdgeRow
	for rows.Next() {
		var e EdgeRow
		if err := rows.Scan(&e.CallerID, &e.Caller, &e.CalleeID, &e.Callee, &e.Kind); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
