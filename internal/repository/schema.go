package repository

// SchemaStatements are idempotent DDL statements executed at startup.
var SchemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS sentitrade`,

	`CREATE TABLE IF NOT EXISTS sentitrade.ticks (
        ts     DateTime,
        asset  LowCardinality(String),
        price  Float64,
        volume Float64
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (asset, ts)
    TTL ts + INTERVAL 30 DAY`,

	`CREATE TABLE IF NOT EXISTS sentitrade.sentiment (
        ts              DateTime,
        asset           LowCardinality(String),
        score           Float64,
        trusted_sources UInt16,
        source          LowCardinality(String)
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (asset, ts)
    TTL ts + INTERVAL 90 DAY`,

	`CREATE TABLE IF NOT EXISTS sentitrade.signals (
        id            String,
        asset         LowCardinality(String),
        action        LowCardinality(String),
        status        LowCardinality(String),
        status_reason String,
        confidence    Float64,
        entry         Float64,
        stop_loss     Float64,
        take_profit   Float64,
        quantity      Float64,
        rr_ratio      Float64,
        quality_score Float64,
        reasoning     String,
        created_at    DateTime,
        expires_at    DateTime,
        updated_at    DateTime
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (asset, id)`,
}
