package db

// schema is applied on every Open. All natural-key uniqueness constraints
// live here as the final correctness guard behind the resolver and merge
// layers.
const schema = `
CREATE TABLE IF NOT EXISTS seasons (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL UNIQUE,
    start_year  INTEGER NOT NULL,
    end_year    INTEGER NOT NULL,
    is_current  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS categories (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT    NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS teams (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT    NOT NULL UNIQUE,
    shield_filename TEXT
);

CREATE TABLE IF NOT EXISTS groups (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    season_id     INTEGER NOT NULL REFERENCES seasons(id),
    category_id   INTEGER NOT NULL REFERENCES categories(id),
    code          TEXT    NOT NULL,
    name          TEXT,
    full_name     TEXT,
    phase         TEXT,
    island        TEXT,
    url           TEXT,
    current_round TEXT,
    UNIQUE(season_id, category_id, code)
);

CREATE TABLE IF NOT EXISTS standings (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id  INTEGER NOT NULL REFERENCES groups(id),
    team_id   INTEGER NOT NULL REFERENCES teams(id),
    position  INTEGER,
    points    INTEGER,
    played    INTEGER,
    won       INTEGER,
    drawn     INTEGER,
    lost      INTEGER,
    gf        INTEGER,
    ga        INTEGER,
    gd        INTEGER,
    UNIQUE(group_id, team_id)
);

CREATE TABLE IF NOT EXISTS matches (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id     INTEGER NOT NULL REFERENCES groups(id),
    round        TEXT,
    date         TEXT,
    time         TEXT,
    home_team_id INTEGER NOT NULL REFERENCES teams(id),
    away_team_id INTEGER NOT NULL REFERENCES teams(id),
    home_score   INTEGER,
    away_score   INTEGER,
    venue        TEXT,
    UNIQUE(group_id, round, home_team_id, away_team_id)
);

CREATE TABLE IF NOT EXISTS goals (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    match_id      INTEGER NOT NULL REFERENCES matches(id),
    minute        INTEGER,
    player_name   TEXT,
    running_score TEXT,
    side          TEXT,
    type          TEXT
);

CREATE TABLE IF NOT EXISTS scorers (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id    INTEGER NOT NULL REFERENCES groups(id),
    player_name TEXT    NOT NULL,
    team_id     INTEGER NOT NULL REFERENCES teams(id),
    goals       INTEGER,
    games       INTEGER,
    UNIQUE(group_id, player_name, team_id)
);
`
