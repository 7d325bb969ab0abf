package storage

import (
	"context"
	"database/sql"

	"github.com/sohamzycus/contractos/internal/model"
)

// InsertExtractionResult persists an entire extraction pass — facts, clauses,
// slots, bindings, and cross-references — as a single atomic write. A
// classifier or binder failure upstream must never leave the TrustGraph with
// a half-written document (spec §4.2/§4.3: extraction is all-or-nothing per
// document).
func (db *DB) InsertExtractionResult(ctx context.Context, r model.ExtractionResult) error {
	return db.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, f := range r.Facts {
			if err := insertFact(ctx, tx, f); err != nil {
				return err
			}
		}
		for _, c := range r.Clauses {
			if err := insertClause(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, s := range r.Slots {
			if err := insertSlot(ctx, tx, s); err != nil {
				return err
			}
		}
		for _, b := range r.Bindings {
			if err := insertBinding(ctx, tx, b); err != nil {
				return err
			}
		}
		for _, xr := range r.CrossRefs {
			if err := insertCrossRef(ctx, tx, xr); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertFact(ctx context.Context, tx *sql.Tx, f model.Fact) error {
	var entityType *string
	if f.EntityType != nil {
		s := string(*f.EntityType)
		entityType = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO facts (fact_id, document_id, fact_type, entity_type, value, text_span, char_start, char_end, location_hint, structural_path, page_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(f.FactID), string(f.DocumentID), string(f.FactType), entityType, f.Value,
		f.Evidence.TextSpan, f.Evidence.CharStart, f.Evidence.CharEnd, f.Evidence.LocationHint,
		f.Evidence.StructuralPath, f.Evidence.PageNumber,
	)
	if err != nil {
		return classifyWriteErr("insert_fact", err)
	}
	return nil
}

func insertClause(ctx context.Context, tx *sql.Tx, c model.Clause) error {
	contained, err := marshalJSON(c.ContainedFactIDs)
	if err != nil {
		return err
	}
	crossRefs, err := marshalJSON(c.CrossReferenceIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO clauses (clause_id, document_id, fact_id, clause_type, heading, section_number, contained_fact_ids, cross_reference_ids, classification_method, classification_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(c.ClauseID), string(c.DocumentID), string(c.FactID), string(c.ClauseType),
		c.Heading, c.SectionNumber, contained, crossRefs, string(c.ClassificationMethod), c.ClassificationConfidence,
	)
	if err != nil {
		return classifyWriteErr("insert_clause", err)
	}
	return nil
}

func insertSlot(ctx context.Context, tx *sql.Tx, s model.ClauseFactSlot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO clause_fact_slots (clause_id, fact_spec_name, status, filled_by_fact_id, required)
		VALUES (?, ?, ?, ?, ?)`,
		string(s.ClauseID), s.FactSpecName, string(s.Status), nullableFactID(s.FilledByFactID), s.Required,
	)
	if err != nil {
		return classifyWriteErr("insert_slot", err)
	}
	return nil
}

func nullableFactID(id *model.FactID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func insertBinding(ctx context.Context, tx *sql.Tx, b model.Binding) error {
	var overriddenBy *string
	if b.IsOverriddenBy != nil {
		s := string(*b.IsOverriddenBy)
		overriddenBy = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bindings (binding_id, document_id, binding_type, term, resolves_to, source_fact_id, scope, is_overridden_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.BindingID), string(b.DocumentID), string(b.BindingType), b.Term, b.ResolvesTo,
		string(b.SourceFactID), string(b.Scope), overriddenBy,
	)
	if err != nil {
		return classifyWriteErr("insert_binding", err)
	}
	return nil
}

func insertCrossRef(ctx context.Context, tx *sql.Tx, r model.CrossReference) error {
	var targetClauseID *string
	if r.TargetClauseID != nil {
		s := string(*r.TargetClauseID)
		targetClauseID = &s
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cross_references (reference_id, source_clause_id, target_reference, target_clause_id, reference_type, effect, context, resolved, source_fact_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ReferenceID), string(r.SourceClauseID), r.TargetReference, targetClauseID,
		string(r.ReferenceType), string(r.Effect), r.Context, r.Resolved, string(r.SourceFactID),
	)
	if err != nil {
		return classifyWriteErr("insert_crossref", err)
	}
	return nil
}

// GetFacts returns every fact for a document, optionally filtered by type.
func (db *DB) GetFacts(ctx context.Context, documentID model.DocumentID, filter model.FactFilter) ([]model.Fact, error) {
	query := `
		SELECT fact_id, document_id, fact_type, entity_type, value, text_span, char_start, char_end, location_hint, structural_path, page_number
		FROM facts WHERE document_id = ?`
	args := []any{string(documentID)}
	if filter.FactType != nil {
		query += " AND fact_type = ?"
		args = append(args, string(*filter.FactType))
	}
	query += " ORDER BY char_start ASC"

	rows, err := db.readPool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewUnavailableError("get_facts", err)
	}
	defer rows.Close()

	var out []model.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFact(s scanner) (model.Fact, error) {
	var (
		f          model.Fact
		factID     string
		documentID string
		factType   string
		entityType sql.NullString
		pageNumber sql.NullInt64
	)
	err := s.Scan(&factID, &documentID, &factType, &entityType, &f.Value, &f.Evidence.TextSpan,
		&f.Evidence.CharStart, &f.Evidence.CharEnd, &f.Evidence.LocationHint, &f.Evidence.StructuralPath,
		&pageNumber)
	if err != nil {
		return model.Fact{}, NewUnavailableError("scan_fact", err)
	}
	f.FactID = model.FactID(factID)
	f.DocumentID = model.DocumentID(documentID)
	f.FactType = model.FactType(factType)
	if entityType.Valid {
		et := model.EntityType(entityType.String)
		f.EntityType = &et
	}
	if pageNumber.Valid {
		n := int(pageNumber.Int64)
		f.Evidence.PageNumber = &n
	}
	return f, nil
}

// GetClauses returns every clause for a document, optionally filtered by type.
func (db *DB) GetClauses(ctx context.Context, documentID model.DocumentID, clauseType *model.ClauseType) ([]model.Clause, error) {
	query := `
		SELECT clause_id, document_id, fact_id, clause_type, heading, section_number, contained_fact_ids, cross_reference_ids, classification_method, classification_confidence
		FROM clauses WHERE document_id = ?`
	args := []any{string(documentID)}
	if clauseType != nil {
		query += " AND clause_type = ?"
		args = append(args, string(*clauseType))
	}

	rows, err := db.readPool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewUnavailableError("get_clauses", err)
	}
	defer rows.Close()

	var out []model.Clause
	for rows.Next() {
		var (
			c             model.Clause
			clauseID      string
			documentID    string
			factID        string
			clauseType    string
			containedJSON string
			crossRefsJSON string
			method        string
			confidence    sql.NullFloat64
		)
		if err := rows.Scan(&clauseID, &documentID, &factID, &clauseType, &c.Heading, &c.SectionNumber,
			&containedJSON, &crossRefsJSON, &method, &confidence); err != nil {
			return nil, NewUnavailableError("scan_clause", err)
		}
		c.ClauseID = model.ClauseID(clauseID)
		c.DocumentID = model.DocumentID(documentID)
		c.FactID = model.FactID(factID)
		c.ClauseType = model.ClauseType(clauseType)
		c.ClassificationMethod = model.ClassificationMethod(method)
		if confidence.Valid {
			c.ClassificationConfidence = &confidence.Float64
		}
		var err error
		c.ContainedFactIDs, err = unmarshalJSON[[]model.FactID](containedJSON)
		if err != nil {
			return nil, err
		}
		c.CrossReferenceIDs, err = unmarshalJSON[[]model.ReferenceID](crossRefsJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetBindings returns every binding recorded for a document.
func (db *DB) GetBindings(ctx context.Context, documentID model.DocumentID) ([]model.Binding, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT binding_id, document_id, binding_type, term, resolves_to, source_fact_id, scope, is_overridden_by
		FROM bindings WHERE document_id = ?`, string(documentID))
	if err != nil {
		return nil, NewUnavailableError("get_bindings", err)
	}
	defer rows.Close()

	var out []model.Binding
	for rows.Next() {
		var (
			b            model.Binding
			bindingID    string
			documentID   string
			bindingType  string
			sourceFactID string
			scope        string
			overriddenBy sql.NullString
		)
		if err := rows.Scan(&bindingID, &documentID, &bindingType, &b.Term, &b.ResolvesTo, &sourceFactID, &scope, &overriddenBy); err != nil {
			return nil, NewUnavailableError("scan_binding", err)
		}
		b.BindingID = model.BindingID(bindingID)
		b.DocumentID = model.DocumentID(documentID)
		b.BindingType = model.BindingType(bindingType)
		b.SourceFactID = model.FactID(sourceFactID)
		b.Scope = model.BindingScope(scope)
		if overriddenBy.Valid {
			id := model.BindingID(overriddenBy.String)
			b.IsOverriddenBy = &id
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetCrossRefs returns every cross-reference whose source clause belongs to document.
func (db *DB) GetCrossRefs(ctx context.Context, documentID model.DocumentID) ([]model.CrossReference, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT r.reference_id, r.source_clause_id, r.target_reference, r.target_clause_id, r.reference_type, r.effect, r.context, r.resolved, r.source_fact_id
		FROM cross_references r
		JOIN clauses c ON c.clause_id = r.source_clause_id
		WHERE c.document_id = ?`, string(documentID))
	if err != nil {
		return nil, NewUnavailableError("get_crossrefs", err)
	}
	defer rows.Close()

	var out []model.CrossReference
	for rows.Next() {
		var (
			r              model.CrossReference
			referenceID    string
			sourceClauseID string
			targetClauseID sql.NullString
			referenceType  string
			effect         string
			context        sql.NullString
			sourceFactID   string
		)
		if err := rows.Scan(&referenceID, &sourceClauseID, &r.TargetReference, &targetClauseID, &referenceType, &effect, &context, &r.Resolved, &sourceFactID); err != nil {
			return nil, NewUnavailableError("scan_crossref", err)
		}
		r.ReferenceID = model.ReferenceID(referenceID)
		r.SourceClauseID = model.ClauseID(sourceClauseID)
		r.ReferenceType = model.ReferenceType(referenceType)
		r.Effect = model.ReferenceEffect(effect)
		r.Context = context.String
		r.SourceFactID = model.FactID(sourceFactID)
		if targetClauseID.Valid {
			id := model.ClauseID(targetClauseID.String)
			r.TargetClauseID = &id
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSlots returns every clause-fact-slot row for a clause.
func (db *DB) GetSlots(ctx context.Context, clauseID model.ClauseID) ([]model.ClauseFactSlot, error) {
	rows, err := db.readPool.QueryContext(ctx, `
		SELECT clause_id, fact_spec_name, status, filled_by_fact_id, required FROM clause_fact_slots WHERE clause_id = ?`,
		string(clauseID))
	if err != nil {
		return nil, NewUnavailableError("get_slots", err)
	}
	defer rows.Close()

	var out []model.ClauseFactSlot
	for rows.Next() {
		var (
			s           model.ClauseFactSlot
			clauseID    string
			status      string
			filledByFID sql.NullString
		)
		if err := rows.Scan(&clauseID, &s.FactSpecName, &status, &filledByFID, &s.Required); err != nil {
			return nil, NewUnavailableError("scan_slot", err)
		}
		s.ClauseID = model.ClauseID(clauseID)
		s.Status = model.SlotStatus(status)
		if filledByFID.Valid {
			id := model.FactID(filledByFID.String)
			s.FilledByFactID = &id
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
