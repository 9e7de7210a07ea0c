package tokencache

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/jwebster45206/slugrando/pkg/access"
	"github.com/jwebster45206/slugrando/pkg/slugcat"
)

const bundleHeader = "== "

// WriteBundle writes every cache into one zstd stream: a "== REGION" header line
// followed by that region's six cache lines, regions in sorted order.
func WriteBundle(w io.Writer, caches []*access.Cache) error {
	sorted := slices.Clone(caches)
	slices.SortFunc(sorted, func(a, b *access.Cache) int { return strings.Compare(a.Region, b.Region) })

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create bundle encoder: %w", err)
	}
	for _, c := range sorted {
		data, err := Marshal(c)
		if err != nil {
			enc.Close()
			return err
		}
		if _, err := io.WriteString(enc, bundleHeader+c.Region+"\n"); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write bundle: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return fmt.Errorf("failed to write bundle: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes a bundle written by WriteBundle. Any malformed region fails the
// whole bundle.
func ReadBundle(r io.Reader, roster *slugcat.Roster) ([]*access.Cache, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create bundle decoder: %w", err)
	}
	defer dec.Close()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress bundle: %w", err)
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}

	var caches []*access.Cache
	for i := 0; i < len(lines); {
		header := lines[i]
		if !strings.HasPrefix(header, bundleHeader) {
			return nil, fmt.Errorf("%w: bundle line %d is not a region header", ErrMalformedCache, i+1)
		}
		region := strings.TrimPrefix(header, bundleHeader)
		if i+1+sectionCount > len(lines) {
			return nil, fmt.Errorf("%w: bundle region %s is truncated", ErrMalformedCache, region)
		}

		var buf bytes.Buffer
		for _, line := range lines[i+1 : i+1+sectionCount] {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		c, err := Unmarshal(region, buf.Bytes(), roster)
		if err != nil {
			return nil, err
		}
		caches = append(caches, c)
		i += 1 + sectionCount
	}
	return caches, nil
}
