package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/incentive-engine/contract"
	"github.com/warp/incentive-engine/money"
)

// =============================================================================
// CONTRACT STORE (contract.Store interface)
// =============================================================================

const contractColumns = `
	id_contrato, numero_contrato, data_pagamento,
	liquido_liberado_cent, comissao_base_cent, comissao_bonus_cent, comissao_total_cent,
	pct_comissao_base, pct_comissao_bonus,
	vendedor_nome, digitador_nome, produto, tipo_operacao, agente_id, etapa_pipeline,
	inconsistencia_data_pagamento, liquido_fallback, comissao_calculada`

// GetSnapshot returns nil, nil for unknown contracts.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*contract.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		snap     contract.Snapshot
		payload  sql.NullString
		syncedAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id_contrato, hash, payload_json, synced_at FROM contract_snapshots WHERE id_contrato = ?",
		id,
	).Scan(&snap.IDContrato, &snap.Hash, &payload, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if payload.Valid {
		snap.Payload = []byte(payload.String)
	}
	snap.SyncedAt = parseTime(syncedAt)
	return &snap, nil
}

// Replace writes the contract row and its snapshot in one transaction.
func (s *Store) Replace(ctx context.Context, c contract.Contract, snap contract.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contracts (`+contractColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id_contrato) DO UPDATE SET
				numero_contrato = excluded.numero_contrato,
				data_pagamento = excluded.data_pagamento,
				liquido_liberado_cent = excluded.liquido_liberado_cent,
				comissao_base_cent = excluded.comissao_base_cent,
				comissao_bonus_cent = excluded.comissao_bonus_cent,
				comissao_total_cent = excluded.comissao_total_cent,
				pct_comissao_base = excluded.pct_comissao_base,
				pct_comissao_bonus = excluded.pct_comissao_bonus,
				vendedor_nome = excluded.vendedor_nome,
				digitador_nome = excluded.digitador_nome,
				produto = excluded.produto,
				tipo_operacao = excluded.tipo_operacao,
				agente_id = excluded.agente_id,
				etapa_pipeline = excluded.etapa_pipeline,
				inconsistencia_data_pagamento = excluded.inconsistencia_data_pagamento,
				liquido_fallback = excluded.liquido_fallback,
				comissao_calculada = excluded.comissao_calculada,
				updated_at = excluded.updated_at
		`,
			c.IDContrato, c.NumeroContrato, formatTime(c.DataPagamento),
			int64(c.LiquidoLiberado), int64(c.ComissaoBase), int64(c.ComissaoBonus), int64(c.ComissaoTotal),
			c.PctComissaoBase.String(), c.PctComissaoBonus.String(),
			c.VendedorNome, c.DigitadorNome, c.Produto, c.TipoOperacao, c.AgenteID, c.EtapaPipeline,
			boolInt(c.InconsistenciaDataPagamento), boolInt(c.LiquidoFallback), boolInt(c.ComissaoCalculada),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to write contract: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO contract_snapshots (id_contrato, hash, payload_json, synced_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id_contrato) DO UPDATE SET
				hash = excluded.hash,
				payload_json = excluded.payload_json,
				synced_at = excluded.synced_at
		`, c.IDContrato, snap.Hash, nullString(string(snap.Payload)), formatTime(snap.SyncedAt))
		if err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		return nil
	})
}

// Get returns contract.ErrContractNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id string) (*contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+contractColumns+" FROM contracts WHERE id_contrato = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, contract.ErrContractNotFound
	}
	c, err := scanContract(rows)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List filters on payment date, From inclusive and To exclusive.
func (s *Store) List(ctx context.Context, f contract.Filter) ([]contract.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + contractColumns + " FROM contracts WHERE 1 = 1"
	var args []any
	if !f.From.IsZero() {
		query += " AND data_pagamento >= ?"
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += " AND data_pagamento < ?"
		args = append(args, formatTime(f.To))
	}
	query += " ORDER BY data_pagamento ASC, id_contrato ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	contracts := []contract.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContract(rows *sql.Rows) (contract.Contract, error) {
	var (
		c                                   contract.Contract
		dataPagamento                       string
		liquido, base, bonus, total         int64
		pctBase, pctBonus                   string
		inconsistencia, fallback, calculada int
	)

	err := rows.Scan(
		&c.IDContrato, &c.NumeroContrato, &dataPagamento,
		&liquido, &base, &bonus, &total,
		&pctBase, &pctBonus,
		&c.VendedorNome, &c.DigitadorNome, &c.Produto, &c.TipoOperacao, &c.AgenteID, &c.EtapaPipeline,
		&inconsistencia, &fallback, &calculada,
	)
	if err != nil {
		return c, fmt.Errorf("failed to scan contract: %w", err)
	}

	c.DataPagamento = parseTime(dataPagamento)
	c.LiquidoLiberado = money.Cents(liquido)
	c.ComissaoBase = money.Cents(base)
	c.ComissaoBonus = money.Cents(bonus)
	c.ComissaoTotal = money.Cents(total)
	c.PctComissaoBase, _ = decimal.NewFromString(pctBase)
	c.PctComissaoBonus, _ = decimal.NewFromString(pctBonus)
	c.InconsistenciaDataPagamento = inconsistencia != 0
	c.LiquidoFallback = fallback != 0
	c.ComissaoCalculada = calculada != 0
	return c, nil
}
