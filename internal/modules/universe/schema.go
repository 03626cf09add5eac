package universe

const schemaSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
	market         TEXT NOT NULL,
	ticker         TEXT NOT NULL,
	as_of          TEXT NOT NULL,
	name           TEXT,
	close          REAL NOT NULL,
	volume         INTEGER,
	pe             REAL,
	pb             REAL,
	roe            REAL,
	debt_ratio     REAL,
	current_ratio  REAL,
	market_cap     REAL,
	revenue_growth REAL,
	profit_growth  REAL,
	dividend_years INTEGER NOT NULL DEFAULT 0,
	industry       TEXT,
	PRIMARY KEY (market, ticker, as_of)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_as_of ON snapshots(as_of);
`

const schemaFundamentals = `
CREATE TABLE IF NOT EXISTS fundamentals (
	market     TEXT NOT NULL,
	ticker     TEXT NOT NULL,
	period_end TEXT NOT NULL,
	revenue    REAL,
	net_profit REAL,
	PRIMARY KEY (market, ticker, period_end)
);
CREATE INDEX IF NOT EXISTS idx_fundamentals_period_end ON fundamentals(period_end);
`

const schemaDailyPrices = `
CREATE TABLE IF NOT EXISTS daily_prices (
	market TEXT NOT NULL,
	ticker TEXT NOT NULL,
	date   TEXT NOT NULL,
	close  REAL NOT NULL,
	PRIMARY KEY (market, ticker, date)
);
CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date);
`
