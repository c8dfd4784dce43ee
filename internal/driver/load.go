package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"escript/internal/diag"
	"escript/internal/lexer"
	"escript/internal/source"
	"escript/internal/token"
)

// Unit is one input file of a build.
type Unit struct {
	Path   string
	Kind   Kind
	File   *source.File  // nil when the file could not be read
	Tokens []token.Token // script units only, filled by LexUnits
	Bag    *diag.Bag
}

// Failed reports whether the unit carries errors.
func (u *Unit) Failed() bool { return u.File == nil || u.Bag.HasErrors() }

func jobsFor(jobs, n int) int {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

type loaded struct {
	content []byte
	flags   source.FileFlags
	err     error
}

// LoadUnits reads paths concurrently and adds them to fs in the given order,
// so file ids follow the order of paths. A file that cannot be read gets an
// IO4001 diagnostic in its unit's bag; only cancellation returns an error.
func LoadUnits(ctx context.Context, fs *source.FileSet, paths []string, jobs, maxDiagnostics int) ([]*Unit, error) {
	results := make([]loaded, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobsFor(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// #nosec G304 -- paths come from the manifest or the command line
			content, err := os.ReadFile(path)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].content, results[i].flags = source.Normalize(content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	units := make([]*Unit, len(paths))
	ids := make([]source.FileID, len(paths))
	for i, path := range paths {
		u := &Unit{Path: path, Kind: KindOf(path), Bag: diag.NewBag(maxDiagnostics)}
		units[i] = u
		if err := results[i].err; err != nil {
			u.Bag.Add(diag.NewError(diag.IOLoadFileError, source.NoSpan, fmt.Sprintf("failed to load %s: %v", path, err)))
			continue
		}
		ids[i] = fs.Add(path, results[i].content, results[i].flags)
	}
	// Get after every Add: the FileSet may reallocate while growing.
	for i, u := range units {
		if results[i].err == nil {
			u.File = fs.Get(ids[i])
		}
	}
	return units, nil
}

// LexUnits tokenizes every loaded script unit concurrently. Each unit reports
// into its own bag.
func LexUnits(ctx context.Context, units []*Unit, jobs int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobsFor(jobs, len(units)))
	for _, u := range units {
		if u.File == nil || u.Kind != KindScript {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u.Tokens = lexer.All(u.File, lexer.Options{Reporter: diag.BagReporter{Bag: u.Bag}})
			return nil
		})
	}
	return g.Wait()
}
