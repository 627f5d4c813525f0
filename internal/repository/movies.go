package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Clark-Hu/movie-oscars/internal/domain"
)

// Listing bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// MoviesRepository provides persistence helpers for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieSelect = `
    SELECT m.id, m.name, m.creation_date, m.oscars_count, m.golden_palm_count,
           m.budget::text, m.genre,
           c.id, c.x, c.y,
           p.id, p.name, p.birthday, p.height, p.weight, p.passport_id
    FROM movies m
    LEFT JOIN coordinates c ON c.id = m.coordinates_id
    LEFT JOIN persons p ON p.id = m.screenwriter_id
`

// sortColumns maps the public sort keys onto columns.
var sortColumns = map[string]string{
	"id":              "m.id",
	"name":            "m.name",
	"creationDate":    "m.creation_date",
	"oscarsCount":     "m.oscars_count",
	"goldenPalmCount": "m.golden_palm_count",
	"budget":          "m.budget",
	"genre":           "m.genre",
}

// MovieListFilters encapsulates search and pagination options. Page is 1-based.
type MovieListFilters struct {
	Name  *string
	Genre *domain.Genre
	Sort  string
	Page  int
	Size  int
}

// Create inserts a movie with its coordinates and screenwriter. Name must be set.
func (r *MoviesRepository) Create(ctx context.Context, fields domain.Patch) (domain.Movie, error) {
	if fields.Name == nil {
		return domain.Movie{}, fmt.Errorf("create movie: name is required")
	}
	var movie domain.Movie
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		coordsID, err := insertCoordinates(ctx, tx, fields.Coordinates)
		if err != nil {
			return err
		}
		personID, err := insertPerson(ctx, tx, fields.Screenwriter)
		if err != nil {
			return err
		}

		const query = `
            INSERT INTO movies (name, coordinates_id, oscars_count, golden_palm_count, budget, genre, screenwriter_id)
            VALUES ($1,$2,$3,$4,$5::text::numeric,$6,$7)
            RETURNING id
        `
		var id int64
		err = tx.QueryRow(ctx, query,
			*fields.Name, coordsID, fields.OscarsCount, fields.GoldenPalmCount,
			budgetArg(fields.Budget), genreArg(fields.Genre), personID,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert movie: %w", err)
		}
		movie, err = getMovie(ctx, tx, id)
		return err
	})
	return movie, err
}

// GetByID fetches a movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id int64) (domain.Movie, error) {
	return getMovie(ctx, r.pool, id)
}

// List returns one page of movies that match the provided filters.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) ([]domain.Movie, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Size <= 0 {
		filters.Size = DefaultPageSize
	} else if filters.Size > MaxPageSize {
		filters.Size = MaxPageSize
	}
	sortKey := strings.TrimSpace(filters.Sort)
	if sortKey == "" {
		sortKey = "id"
	}
	column, ok := sortColumns[sortKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSort, sortKey)
	}

	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.Name != nil && strings.TrimSpace(*filters.Name) != "" {
		where = append(where, fmt.Sprintf("m.name ILIKE %s", arg("%"+escapeLike(strings.TrimSpace(*filters.Name))+"%")))
	}
	if filters.Genre != nil {
		where = append(where, fmt.Sprintf("m.genre = %s", arg(string(*filters.Genre))))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(movieSelect)
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s ASC NULLS LAST, m.id ASC", column))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filters.Size, (filters.Page-1)*filters.Size))

	return queryMovies(ctx, r.pool, queryBuilder.String(), args...)
}

// ListByNamePrefix returns movies whose name starts with prefix, ignoring case.
func (r *MoviesRepository) ListByNamePrefix(ctx context.Context, prefix string) ([]domain.Movie, error) {
	query := movieSelect + ` WHERE m.name ILIKE $1 ORDER BY m.id ASC`
	return queryMovies(ctx, r.pool, query, escapeLike(prefix)+"%")
}

// Update merges patch into the stored movie: non-nil fields replace the
// stored values, nil fields are left untouched.
func (r *MoviesRepository) Update(ctx context.Context, id int64, patch domain.Patch) (domain.Movie, error) {
	var movie domain.Movie
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var coordsID, personID *int64
		err := tx.QueryRow(ctx, `SELECT coordinates_id, screenwriter_id FROM movies WHERE id = $1 FOR UPDATE`, id).
			Scan(&coordsID, &personID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock movie: %w", err)
		}

		if patch.Coordinates != nil {
			if coordsID, err = upsertCoordinates(ctx, tx, coordsID, patch.Coordinates); err != nil {
				return err
			}
		}
		if patch.Screenwriter != nil {
			if personID, err = upsertPerson(ctx, tx, personID, patch.Screenwriter); err != nil {
				return err
			}
		}

		const query = `
            UPDATE movies
            SET name = COALESCE($2, name),
                coordinates_id = $3,
                oscars_count = COALESCE($4, oscars_count),
                golden_palm_count = COALESCE($5, golden_palm_count),
                budget = COALESCE($6::text::numeric, budget),
                genre = COALESCE($7, genre),
                screenwriter_id = $8
            WHERE id = $1
        `
		_, err = tx.Exec(ctx, query, id,
			patch.Name, coordsID, patch.OscarsCount, patch.GoldenPalmCount,
			budgetArg(patch.Budget), genreArg(patch.Genre), personID)
		if err != nil {
			return fmt.Errorf("update movie: %w", err)
		}
		movie, err = getMovie(ctx, tx, id)
		return err
	})
	return movie, err
}

// Delete removes a movie together with its coordinates and screenwriter.
func (r *MoviesRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var coordsID, personID *int64
		err := tx.QueryRow(ctx, `DELETE FROM movies WHERE id = $1 RETURNING coordinates_id, screenwriter_id`, id).
			Scan(&coordsID, &personID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("delete movie: %w", err)
		}
		return deleteOwned(ctx, tx, collect(coordsID), collect(personID))
	})
}

// DeleteByOscarsCount removes every movie whose oscars count equals count and
// reports how many were deleted. Movies without a count never match.
func (r *MoviesRepository) DeleteByOscarsCount(ctx context.Context, count int64) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `DELETE FROM movies WHERE oscars_count = $1 RETURNING coordinates_id, screenwriter_id`, count)
		if err != nil {
			return fmt.Errorf("delete movies: %w", err)
		}
		var coordinateIDs, personIDs []int64
		for rows.Next() {
			var coordsID, personID *int64
			if err := rows.Scan(&coordsID, &personID); err != nil {
				rows.Close()
				return err
			}
			coordinateIDs = append(coordinateIDs, collect(coordsID)...)
			personIDs = append(personIDs, collect(personID)...)
			deleted++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		return deleteOwned(ctx, tx, coordinateIDs, personIDs)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountOscarsLessThan counts movies with a known oscars count below count.
func (r *MoviesRepository) CountOscarsLessThan(ctx context.Context, count int64) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int8 FROM movies WHERE oscars_count < $1`, count).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movies: %w", err)
	}
	return n, nil
}

func getMovie(ctx context.Context, q queryer, id int64) (domain.Movie, error) {
	movie, err := scanMovie(q.QueryRow(ctx, movieSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Movie{}, ErrNotFound
		}
		return domain.Movie{}, err
	}
	return movie, nil
}

func queryMovies(ctx context.Context, q queryer, query string, args ...interface{}) ([]domain.Movie, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Movie, 0)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanMovie(row pgx.Row) (domain.Movie, error) {
	var (
		movie      domain.Movie
		budget     *string
		genre      *string
		coordsID   *int64
		x          *int64
		y          *float64
		personID   *int64
		personName *string
		birthday   *time.Time
		height     *float64
		weight     *int64
		passportID *string
	)

	err := row.Scan(
		&movie.ID,
		&movie.Name,
		&movie.CreationDate,
		&movie.OscarsCount,
		&movie.GoldenPalmCount,
		&budget,
		&genre,
		&coordsID,
		&x,
		&y,
		&personID,
		&personName,
		&birthday,
		&height,
		&weight,
		&passportID,
	)
	if err != nil {
		return domain.Movie{}, err
	}

	if budget != nil {
		d, err := decimal.NewFromString(*budget)
		if err != nil {
			return domain.Movie{}, fmt.Errorf("scan budget: %w", err)
		}
		movie.Budget = &d
	}
	if genre != nil {
		g := domain.Genre(*genre)
		movie.Genre = &g
	}
	if coordsID != nil {
		movie.Coordinates = &domain.Coordinates{X: x, Y: y}
	}
	if personID != nil {
		movie.Screenwriter = &domain.Person{
			Name:       deref(personName),
			Birthday:   birthday,
			Height:     height,
			Weight:     weight,
			PassportID: deref(passportID),
		}
	}
	return movie, nil
}

func budgetArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func genreArg(g *domain.Genre) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func collect(id *int64) []int64 {
	if id == nil {
		return nil
	}
	return []int64{*id}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
