package spritemill

import (
	"bytes"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/ericpauley/go-quantize/quantize"
	_ "github.com/mattn/go-sqlite3"
	nfnt "github.com/nfnt/resize"
)

const (
	previewSize   = 64
	previewColors = 16
)

// AssetDB persists project and asset metadata. The processing core never
// touches it; the Studio records results here after the pipeline has run.
type AssetDB struct {
	db *sql.DB
}

// NewAssetDB opens (creating if necessary) a sqlite database at file.
func NewAssetDB(file string) (*AssetDB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS project (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE)"); err != nil {
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS asset (id INTEGER PRIMARY KEY NOT NULL, project_id INTEGER, kind TEXT NOT NULL, mime TEXT NOT NULL, url TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, colors INTEGER NOT NULL, sha1 TEXT NOT NULL UNIQUE, preview BLOB, FOREIGN KEY(project_id) REFERENCES project(id))"); err != nil {
		return nil, err
	}

	return &AssetDB{
		db: db,
	}, nil
}

func (d *AssetDB) Close() error {
	return d.db.Close()
}

// AddProject returns the id of the named project, creating it on first use.
func (d *AssetDB) AddProject(name string) (int64, error) {
	var id int64
	switch err := d.db.QueryRow("SELECT id FROM project WHERE name = ?", name).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := d.db.Exec("INSERT INTO project (name) VALUES (?)", name)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// AddAsset records a processed asset, deduplicated by the SHA-1 of its
// encoded bytes. preview may be nil.
func (d *AssetDB) AddAsset(project sql.NullInt64, kind, mime, url, sha string, width, height, colors int, preview []byte) (int64, error) {
	var id int64
	switch err := d.db.QueryRow("SELECT id FROM asset WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := d.db.Exec("INSERT INTO asset (project_id, kind, mime, url, width, height, colors, sha1, preview) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			project, kind, mime, url, width, height, colors, sha, preview)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// FindAssetBySHA1 returns the stored URL for the given content hash, or an
// empty string when the asset is unknown.
func (d *AssetDB) FindAssetBySHA1(sha string) (string, error) {
	var url string
	switch err := d.db.QueryRow("SELECT url FROM asset WHERE sha1 = ?", sha).Scan(&url); err {
	case sql.ErrNoRows:
		return "", nil
	case nil:
		return url, nil
	default:
		return "", err
	}
}

// previewPNG renders a small quantized preview of m for storage alongside
// the asset row, so browsing the database never requires fetching the full
// asset.
func previewPNG(m image.Image) ([]byte, error) {
	b := m.Bounds()
	if b.Dx() > previewSize || b.Dy() > previewSize {
		m = nfnt.Thumbnail(previewSize, previewSize, m, nfnt.NearestNeighbor)
		b = m.Bounds()
	}

	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, previewColors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, pm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
