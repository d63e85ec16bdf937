package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"web3loc/internal/models"
)

const contractColumns = `id, chain, chain_id, address, name, source_code, bytecode,
	compiler_version, optimization, runs, constructor_arguments, abi,
	creation_txhash, block_number, verified_at, bytecode_hash, source_hash,
	summary, created_at`

// InsertContract persists an admitted record, enforcing the content-dedup
// invariant at the storage boundary. A conflict on either hash column is a
// successful no-op: the record is already known, and (false, nil) is
// returned. The in-memory trackers are a pre-filter; this constraint is the
// source of truth across runs.
func (db *DB) InsertContract(ctx context.Context, contract *models.Contract) (bool, error) {
	query := `
		INSERT INTO contracts (
			chain, chain_id, address, name, source_code, bytecode,
			compiler_version, optimization, runs, constructor_arguments, abi,
			creation_txhash, block_number, verified_at, bytecode_hash, source_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT DO NOTHING
		RETURNING id
	`
	err := db.QueryRowContext(
		ctx, query,
		contract.Chain,
		contract.ChainID,
		contract.Address,
		contract.Name,
		contract.SourceCode,
		contract.Bytecode,
		contract.CompilerVersion,
		contract.Optimization,
		contract.Runs,
		contract.ConstructorArguments,
		contract.ABI,
		contract.CreationTxHash,
		contract.BlockNumber,
		contract.VerifiedAt,
		contract.BytecodeHash,
		contract.SourceHash,
	).Scan(&contract.ID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert contract %s: %w", contract.Address, err)
	}
	return true, nil
}

// GetContractByAddress retrieves a contract by chain and address. Returns
// nil when no such deployment was admitted.
func (db *DB) GetContractByAddress(ctx context.Context, chain, address string) (*models.Contract, error) {
	var contract models.Contract
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE chain = $1 AND address = $2`, contractColumns)
	err := db.GetContext(ctx, &contract, query, chain, models.NormalizeAddress(address))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract %s on %s: %w", address, chain, err)
	}
	return &contract, nil
}

// QueryContracts retrieves contracts matching the filter, newest first.
func (db *DB) QueryContracts(ctx context.Context, filter models.ContractFilter, limit, offset int) ([]models.Contract, error) {
	query, args := buildContractQuery(filter, limit, offset)

	contracts := []models.Contract{}
	if err := db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	return contracts, nil
}

// buildContractQuery assembles the filtered SELECT. Kept separate from the
// executing method so the clause construction is testable without a database.
func buildContractQuery(filter models.ContractFilter, limit, offset int) (string, []interface{}) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM contracts WHERE 1=1", contractColumns)
	args := []interface{}{}

	if filter.Chain != "" {
		args = append(args, filter.Chain)
		fmt.Fprintf(&sb, " AND chain = $%d", len(args))
	}
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		fmt.Fprintf(&sb, " AND name ILIKE $%d", len(args))
	}
	if filter.CompilerVersion != "" {
		args = append(args, "%"+filter.CompilerVersion+"%")
		fmt.Fprintf(&sb, " AND compiler_version ILIKE $%d", len(args))
	}
	if filter.Optimization != nil {
		args = append(args, *filter.Optimization)
		fmt.Fprintf(&sb, " AND optimization = $%d", len(args))
	}
	if filter.Address != "" {
		args = append(args, models.NormalizeAddress(filter.Address))
		fmt.Fprintf(&sb, " AND address = $%d", len(args))
	}

	sb.WriteString(" ORDER BY created_at DESC")

	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}

// UpdateContractSummary sets the free-text annotation for a stored contract.
// The summary is the only mutable field after a record is admitted; it does
// not participate in dedup identity.
func (db *DB) UpdateContractSummary(ctx context.Context, chain, address, summary string) (bool, error) {
	query := `
		UPDATE contracts
		SET summary = $1, updated_at = NOW()
		WHERE chain = $2 AND address = $3
	`
	res, err := db.ExecContext(ctx, query, summary, chain, models.NormalizeAddress(address))
	if err != nil {
		return false, fmt.Errorf("failed to update summary for %s on %s: %w", address, chain, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Statistics aggregates counts over the stored corpus.
func (db *DB) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{
		ByChain:           make(map[string]int64),
		OptimizationSplit: make(map[string]int64),
	}

	if err := db.GetContext(ctx, &stats.TotalContracts,
		`SELECT COUNT(*) FROM contracts`); err != nil {
		return nil, fmt.Errorf("failed to count contracts: %w", err)
	}

	chainRows := []struct {
		Chain string `db:"chain"`
		Count int64  `db:"count"`
	}{}
	if err := db.SelectContext(ctx, &chainRows,
		`SELECT chain, COUNT(*) AS count FROM contracts GROUP BY chain`); err != nil {
		return nil, fmt.Errorf("failed to count by chain: %w", err)
	}
	for _, row := range chainRows {
		stats.ByChain[row.Chain] = row.Count
	}

	optRows := []struct {
		Optimization bool  `db:"optimization"`
		Count        int64 `db:"count"`
	}{}
	if err := db.SelectContext(ctx, &optRows,
		`SELECT optimization, COUNT(*) AS count FROM contracts GROUP BY optimization`); err != nil {
		return nil, fmt.Errorf("failed to count optimization split: %w", err)
	}
	for _, row := range optRows {
		if row.Optimization {
			stats.OptimizationSplit[models.OptimizationOn] = row.Count
		} else {
			stats.OptimizationSplit[models.OptimizationOff] = row.Count
		}
	}

	if err := db.SelectContext(ctx, &stats.TopCompilers, `
		SELECT compiler_version, COUNT(*) AS count
		FROM contracts
		GROUP BY compiler_version
		ORDER BY count DESC
		LIMIT 10
	`); err != nil {
		return nil, fmt.Errorf("failed to rank compiler versions: %w", err)
	}

	return stats, nil
}
