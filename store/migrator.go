package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/a8ns/storefront/internal/version"
)

// Schema versioning:
//
// A fresh database is initialized from migration/{driver}/LATEST.sql in one
// transaction; the resulting schema version is recorded in system_setting.
// Existing databases apply the incremental files between their recorded
// version and the version the binary ships, ordered lexicographically.
//
// Migration files live at store/migration/{driver}/{minor}/NN__description.sql
// where NN is a zero-padded patch number. A file's schema version is
// {minor}.{NN+1}.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the description in
	// a migration file name, e.g. "00__add_product_barcode.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the full-schema file applied to new databases.
	LatestSchemaFileName = "LATEST.sql"

	// schemaVersionSettingName is the system_setting row holding the version.
	schemaVersionSettingName = "schema_version"

	defaultSchemaVersion = "0.0.0"

	modeProd = "prod"
)

func getSchemaVersionOrDefault(schemaVersion string) string {
	if schemaVersion == "" {
		return defaultSchemaVersion
	}
	return schemaVersion
}

func isVersionEmpty(schemaVersion string) bool {
	return schemaVersion == "" || schemaVersion == defaultSchemaVersion
}

// shouldApplyMigration reports whether a migration file sits strictly above
// the database's version and at or below the binary's target version.
func shouldApplyMigration(fileVersion, currentDBVersion, targetVersion string) bool {
	currentDBVersionSafe := getSchemaVersionOrDefault(currentDBVersion)
	return version.IsVersionGreaterThan(fileVersion, currentDBVersionSafe) &&
		version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion)
}

// Migrate brings the database schema up to the version this binary expects.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	if s.profile.Mode != modeProd {
		// Dev databases are initialized from LATEST.sql and recreated at
		// will; incremental migrations only matter for prod upgrades.
		return nil
	}

	databaseSchemaVersion, err := s.getDatabaseSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get database schema version")
	}
	currentSchemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}

	if !isVersionEmpty(databaseSchemaVersion) && version.IsVersionGreaterThan(databaseSchemaVersion, currentSchemaVersion) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", databaseSchemaVersion),
			slog.String("currentVersion", currentSchemaVersion),
		)
		return errors.Errorf("cannot downgrade schema version from %s to %s", databaseSchemaVersion, currentSchemaVersion)
	}

	if isVersionEmpty(databaseSchemaVersion) || version.IsVersionGreaterThan(currentSchemaVersion, databaseSchemaVersion) {
		if err := s.applyMigrations(ctx, databaseSchemaVersion, currentSchemaVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

// applyMigrations applies every pending migration file between the two
// versions in one transaction.
func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetSchemaVersion string) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*/*.sql", s.getMigrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration",
		slog.String("currentSchemaVersion", getSchemaVersionOrDefault(currentSchemaVersion)),
		slog.String("targetSchemaVersion", targetSchemaVersion))

	migrationsApplied := 0
	for _, filePath := range filePaths {
		fileSchemaVersion, err := s.getSchemaVersionOfMigrateScript(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to get schema version of migrate script")
		}
		if !shouldApplyMigration(fileSchemaVersion, currentSchemaVersion, targetSchemaVersion) {
			continue
		}

		slog.Info("applying migration",
			slog.String("file", filePath),
			slog.String("version", fileSchemaVersion))

		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		migrationsApplied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}

	slog.Info("migration completed", slog.Int("migrationsApplied", migrationsApplied))

	if err := s.upsertDatabaseSchemaVersion(ctx, targetSchemaVersion); err != nil {
		return errors.Wrap(err, "failed to update database schema version")
	}
	return nil
}

// preMigrate initializes an empty database from the latest full schema.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}

	tx, err := s.driver.GetDB().Begin()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Errorf("failed to execute SQL file %s, err %s", filePath, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	schemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	slog.Info("database initialized successfully", slog.String("schemaVersion", schemaVersion))
	if err := s.upsertDatabaseSchemaVersion(ctx, schemaVersion); err != nil {
		return errors.Wrap(err, "failed to update database schema version")
	}
	return nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// GetCurrentSchemaVersion derives the schema version this binary ships from
// the migration files bundled for its minor version.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	currentVersion := version.GetCurrentVersion(s.profile.Mode)
	minorVersion := version.GetMinorVersion(currentVersion)
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s%s/*.sql", s.getMigrationBasePath(), minorVersion))
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration files")
	}

	sort.Strings(filePaths)
	if len(filePaths) == 0 {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	return s.getSchemaVersionOfMigrateScript(filePaths[len(filePaths)-1])
}

// getSchemaVersionOfMigrateScript maps a migration file path to the schema
// version it produces.
func (s *Store) getSchemaVersionOfMigrateScript(filePath string) (string, error) {
	if strings.HasSuffix(filePath, LatestSchemaFileName) {
		return s.GetCurrentSchemaVersion()
	}

	normalizedPath := filepath.ToSlash(filePath)
	elements := strings.Split(normalizedPath, "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	rawPatchVersion := strings.Split(elements[len(elements)-1], MigrateFileNameSplit)[0]
	patchVersion, err := strconv.Atoi(rawPatchVersion)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatchVersion)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patchVersion+1), nil
}

// getDatabaseSchemaVersion reads the recorded schema version, or "" when the
// setting row does not exist yet.
func (s *Store) getDatabaseSchemaVersion(ctx context.Context) (string, error) {
	var value string
	err := s.driver.GetDB().QueryRowContext(ctx,
		"SELECT value FROM system_setting WHERE name = $1", schemaVersionSettingName,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to query schema version")
	}
	return value, nil
}

func (s *Store) upsertDatabaseSchemaVersion(ctx context.Context, schemaVersion string) error {
	_, err := s.driver.GetDB().ExecContext(ctx,
		`INSERT INTO system_setting (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`,
		schemaVersionSettingName, schemaVersion,
	)
	if err != nil {
		return errors.Wrap(err, "failed to upsert schema version")
	}
	return nil
}

// execute runs a migration script inside the transaction. PostgreSQL rejects
// multiple statements in one ExecContext call, so scripts are split first.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	statements := splitSQL(stmt)
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a multi-statement SQL script into individual statements,
// respecting dollar-quoted bodies, single-quoted strings and comments.
func splitSQL(sql string) []string {
	var statements []string
	var currentStmt strings.Builder
	lines := strings.Split(sql, "\n")

	inDollarQuote := false
	dollarQuoteTag := ""
	inSingleQuote := false
	inMultiLineComment := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "--") && !inDollarQuote && !inSingleQuote && !inMultiLineComment {
			continue
		}

		if trimmed == "" && !inDollarQuote {
			if currentStmt.Len() > 0 {
				currentStmt.WriteString("\n")
			}
			continue
		}

		i := 0
		for i < len(line) {
			ch := line[i]

			// Dollar quote start/end, e.g. $$ or $fn$.
			if !inSingleQuote && !inMultiLineComment {
				if ch == '$' {
					tagEnd := i + 1
					for tagEnd < len(line) && line[tagEnd] != '$' {
						tagEnd++
					}
					if tagEnd < len(line) && line[tagEnd] == '$' {
						tag := line[i : tagEnd+1]
						if inDollarQuote && tag == dollarQuoteTag {
							inDollarQuote = false
							dollarQuoteTag = ""
							currentStmt.WriteString(tag)
							i = tagEnd + 1
							continue
						} else if !inDollarQuote {
							inDollarQuote = true
							dollarQuoteTag = tag
							currentStmt.WriteString(tag)
							i = tagEnd + 1
							continue
						}
					}
				}
			}

			if ch == '\'' && !inDollarQuote && !inMultiLineComment {
				inSingleQuote = !inSingleQuote
				currentStmt.WriteByte(ch)
				i++
				continue
			}

			if !inSingleQuote && !inDollarQuote && i+1 < len(line) && line[i:i+2] == "/*" {
				inMultiLineComment = true
				i += 2
				continue
			}
			if inMultiLineComment && i+1 < len(line) && line[i:i+2] == "*/" {
				inMultiLineComment = false
				i += 2
				continue
			}

			// Inline -- comment: skip the rest of the line.
			if !inSingleQuote && !inDollarQuote && !inMultiLineComment && ch == '-' && i+1 < len(line) && line[i+1] == '-' {
				break
			}

			// Statement separator.
			if ch == ';' && !inSingleQuote && !inDollarQuote && !inMultiLineComment {
				currentStmt.WriteByte(ch)
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
				i++
				for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
					i++
				}
				continue
			}

			currentStmt.WriteByte(ch)
			i++
		}

		if currentStmt.Len() > 0 {
			currentStmt.WriteString("\n")
		}
	}

	if currentStmt.Len() > 0 {
		stmt := strings.TrimSpace(currentStmt.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}
