package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE listing_drafts (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				status VARCHAR(32) NOT NULL DEFAULT 'DRAFT',
				data JSONB NOT NULL DEFAULT '{}',
				published_entity_id BIGINT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_listing_drafts_user_id ON listing_drafts(user_id);

			CREATE TABLE published_entities (
				id BIGSERIAL PRIMARY KEY,
				kind VARCHAR(32) NOT NULL,
				user_id BIGINT NOT NULL,
				draft_id BIGINT,
				name VARCHAR(255) NOT NULL DEFAULT '',
				data JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(32) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- one published entity per draft, one profile per user
			CREATE UNIQUE INDEX idx_published_entities_draft ON published_entities(kind, draft_id) WHERE draft_id IS NOT NULL;
			CREATE UNIQUE INDEX idx_published_entities_profile ON published_entities(kind, user_id) WHERE draft_id IS NULL;
			CREATE INDEX idx_published_entities_user_id ON published_entities(user_id);
		`,
		2: `
			CREATE TABLE credit_ledger (
				id BIGSERIAL PRIMARY KEY,
				user_id BIGINT NOT NULL,
				type VARCHAR(16) NOT NULL CHECK (type IN ('CREDIT', 'DEBIT')),
				amount BIGINT NOT NULL CHECK (amount > 0),
				balance_after BIGINT NOT NULL CHECK (balance_after >= 0),
				reason TEXT NOT NULL DEFAULT '',
				idempotency_key VARCHAR(255) UNIQUE,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_credit_ledger_user_id ON credit_ledger(user_id, id DESC);
		`,
	}
}
