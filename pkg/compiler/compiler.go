// Package compiler chains the three compilation stages: parse (source to
// PL tree), resolve (PL tree to relational query), and generate (relational
// query to SQL). Each stage is independently invocable, including on
// serialized trees produced by another process. Errors are tagged with the
// stage that produced them and partial output is never returned.
package compiler

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/dialect"
	"github.com/leapstack-labs/leapq/pkg/parser"
	"github.com/leapstack-labs/leapq/pkg/rq"
	"github.com/leapstack-labs/leapq/pkg/semantic"
	"github.com/leapstack-labs/leapq/pkg/sqlgen"

	_ "github.com/leapstack-labs/leapq/pkg/dialects/bigquery"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/clickhouse"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/duckdb"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/generic"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mssql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/snowflake"
	_ "github.com/leapstack-labs/leapq/pkg/dialects/sqlite"
)

// Version is reported by the CLI and in the SQL signature comment.
const Version = "v0.1.0"

// Stage identifies the compilation stage that produced an error.
type Stage string

const (
	StageParse    Stage = "parse"
	StageResolve  Stage = "resolve"
	StageGenerate Stage = "generate"
)

// StageError tags an error with its producing stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return string(e.Stage) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}

// Options controls compilation.
type Options struct {
	Target           string // dialect name
	Format           bool   // clause-per-line SQL formatting
	SignatureComment bool   // trailing "-- Generated by LeapQ" comment
}

// DefaultOptions returns the default compilation options.
func DefaultOptions() Options {
	return Options{
		Target:           "generic",
		Format:           true,
		SignatureComment: true,
	}
}

// Parse parses source text into a PL tree.
func Parse(src string) (*ast.Module, error) {
	m, err := parser.Parse(src)
	if err != nil {
		return nil, stageErr(StageParse, err)
	}
	return m, nil
}

// Resolve lowers a PL tree to a relational query.
func Resolve(m *ast.Module) (*rq.Query, error) {
	q, err := semantic.Resolve(m, semantic.DefaultRegistry())
	if err != nil {
		return nil, stageErr(StageResolve, err)
	}
	return q, nil
}

// Generate renders a relational query as SQL for the target dialect.
func Generate(q *rq.Query, opts Options) (string, error) {
	d, ok := dialect.Get(opts.Target)
	if !ok {
		return "", stageErr(StageGenerate, fmt.Errorf("unknown dialect %q (known: %v)", opts.Target, dialect.List()))
	}
	sql, err := sqlgen.Generate(q, d, sqlgen.Options{
		Format:           opts.Format,
		SignatureComment: opts.SignatureComment,
		Version:          Version,
	})
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}
	return sql, nil
}

// Compile runs all three stages. Empty source compiles to the empty string.
func Compile(src string, opts Options) (string, error) {
	m, err := Parse(src)
	if err != nil {
		return "", err
	}
	q, err := Resolve(m)
	if err != nil {
		return "", err
	}
	return Generate(q, opts)
}

// ParseJSON parses source text and returns the serialized PL tree.
func ParseJSON(src string) ([]byte, error) {
	m, err := Parse(src)
	if err != nil {
		return nil, err
	}
	data, err := ast.Marshal(m)
	if err != nil {
		return nil, stageErr(StageParse, err)
	}
	return data, nil
}

// ResolveJSON resolves a serialized PL tree and returns the serialized
// relational query.
func ResolveJSON(plTree []byte) ([]byte, error) {
	m, err := ast.Unmarshal(plTree)
	if err != nil {
		return nil, stageErr(StageResolve, err)
	}
	q, err := Resolve(m)
	if err != nil {
		return nil, err
	}
	data, err := rq.Marshal(q)
	if err != nil {
		return nil, stageErr(StageResolve, err)
	}
	return data, nil
}

// GenerateJSON renders a serialized relational query as SQL.
func GenerateJSON(rqTree []byte, opts Options) (string, error) {
	q, err := rq.Unmarshal(rqTree)
	if err != nil {
		return "", stageErr(StageGenerate, err)
	}
	return Generate(q, opts)
}

// StageOf reports the stage of a compilation error, or "" when the error
// did not come from a stage.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
