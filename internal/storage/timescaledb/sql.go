package timescaledb

const createHistoryTableSQL = `
CREATE TABLE IF NOT EXISTS tide_history (
    stationid text NOT NULL,
    position integer NOT NULL,
    height float8 NOT NULL,
    observed_at text NOT NULL,
    recorded_at timestamp WITH TIME ZONE NOT NULL,
    PRIMARY KEY (stationid, position)
);`

const createSurgeStateTableSQL = `
CREATE TABLE IF NOT EXISTS surge_state (
    stationid text PRIMARY KEY,
    active boolean NOT NULL DEFAULT false,
    event_id text NOT NULL DEFAULT '',
    peak_height float8 NOT NULL DEFAULT 0,
    peak_observed_at text NOT NULL DEFAULT '',
    peak_recorded_at timestamp WITH TIME ZONE NULL,
    started_at timestamp WITH TIME ZONE NULL,
    updated_at timestamp WITH TIME ZONE NOT NULL DEFAULT now()
);`

const createReadingsTableSQL = `
CREATE TABLE IF NOT EXISTS readings (
    time timestamp WITH TIME ZONE NOT NULL,
    stationid text NOT NULL,
    height float8 NOT NULL,
    observed_at text NOT NULL
);`

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

const createHypertableSQL = `SELECT create_hypertable('readings', 'time', if_not_exists => TRUE);`

const create1hViewSQL = `
CREATE MATERIALIZED VIEW IF NOT EXISTS tide_1h
WITH (timescaledb.continuous) AS
SELECT
    time_bucket('1 hour', time) AS bucket,
    stationid,
    max(height) AS max_height,
    min(height) AS min_height,
    avg(height) AS avg_height,
    count(*) AS samples
FROM readings
GROUP BY bucket, stationid
WITH NO DATA;`

const addAggregationPolicy1hSQL = `
SELECT add_continuous_aggregate_policy('tide_1h',
    start_offset => INTERVAL '1 day',
    end_offset => INTERVAL '1 hour',
    schedule_interval => INTERVAL '1 hour',
    if_not_exists => TRUE);`

const deleteHistorySQL = `DELETE FROM tide_history WHERE stationid = ?`

const insertHistorySQL = `INSERT INTO tide_history (stationid, position, height, observed_at, recorded_at) VALUES (?, ?, ?, ?, ?)`

const insertReadingSQL = `INSERT INTO readings (time, stationid, height, observed_at) VALUES (?, ?, ?, ?)`

const selectHistorySQL = `SELECT height, observed_at, recorded_at FROM tide_history WHERE stationid = ? ORDER BY position`

const selectSurgeStateSQL = `
SELECT active, event_id, peak_height, peak_observed_at, peak_recorded_at, started_at
FROM surge_state
WHERE stationid = ?`

const upsertSurgeStateSQL = `
INSERT INTO surge_state (stationid, active, event_id, peak_height, peak_observed_at, peak_recorded_at, started_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, now())
ON CONFLICT (stationid) DO UPDATE SET
    active = EXCLUDED.active,
    event_id = EXCLUDED.event_id,
    peak_height = EXCLUDED.peak_height,
    peak_observed_at = EXCLUDED.peak_observed_at,
    peak_recorded_at = EXCLUDED.peak_recorded_at,
    started_at = EXCLUDED.started_at,
    updated_at = now()`
