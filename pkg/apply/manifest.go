package apply

import (
	"bytes"
	"encoding/json"
	"io"
	"slices"

	"github.com/matzehuels/stackbump/pkg/deps"
	"github.com/matzehuels/stackbump/pkg/errors"
	"github.com/matzehuels/stackbump/pkg/semver"
	"github.com/matzehuels/stackbump/pkg/version"
)

// span is the byte range of a JSON string literal, quotes included.
type span struct {
	start, end int
}

// layout records where the editable fields of a package.json live.
type layout struct {
	version  *span
	sections map[string]map[string]span
}

var editableSections = func() map[string]bool {
	m := make(map[string]bool, len(deps.AllTypes))
	for _, t := range deps.AllTypes {
		m[t.Section()] = true
	}
	return m
}()

// scanManifest walks the top-level object of data and records the string
// literals for "version" and for every entry of the dependency sections.
func scanManifest(data []byte) (*layout, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "manifest is not a JSON object")
	}

	l := &layout{sections: map[string]map[string]span{}}
	for dec.More() {
		key, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		switch v := tok.(type) {
		case string:
			if key == "version" {
				s := literalSpan(data, before, dec.InputOffset())
				l.version = &s
			}
		case json.Delim:
			if v == '{' && editableSections[key] {
				entries, err := scanSection(dec, data)
				if err != nil {
					return nil, err
				}
				l.sections[key] = entries
				continue
			}
			if err := skip(dec, v); err != nil {
				return nil, err
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "trailing data after manifest object")
	}
	return l, nil
}

func scanSection(dec *json.Decoder, data []byte) (map[string]span, error) {
	entries := map[string]span{}
	for dec.More() {
		name, err := nextKey(dec)
		if err != nil {
			return nil, err
		}
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch v := tok.(type) {
		case string:
			entries[name] = literalSpan(data, before, dec.InputOffset())
		case json.Delim:
			if err := skip(dec, v); err != nil {
				return nil, err
			}
		}
	}
	_, err := dec.Token() // closing brace
	return entries, err
}

func nextKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidManifest, "expected object key, got %v", tok)
	}
	return key, nil
}

// skip consumes the rest of a composite value whose opening delimiter has
// already been read.
func skip(dec *json.Decoder, open json.Delim) error {
	if open != '{' && open != '[' {
		return nil
	}
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// literalSpan locates a string literal that ends at end. Between before and
// the opening quote there is only whitespace and the key's colon.
func literalSpan(data []byte, before, end int64) span {
	start := int(before) + bytes.IndexByte(data[before:end], '"')
	return span{start: start, end: int(end)}
}

func quote(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

func unquote(data []byte, s span) (string, error) {
	var v string
	err := json.Unmarshal(data[s.start:s.end], &v)
	return v, err
}

type replacement struct {
	span
	value []byte
}

// EditManifest returns data with the version field set to u's target
// version (the snapshot when one was applied) and every dependency specifier in u.DependencyUpdates rewritten. Only the
// touched string literals change; whitespace, key order and every other
// field are preserved byte for byte. changed is false when data already
// carries the new values.
//
// A version or specifier whose current value matches neither the old nor
// the new one means the manifest moved since resolution and fails with
// INVALID_MANIFEST, as does a manifest without a string version field.
func EditManifest(path string, data []byte, u version.PackageUpdate) (out []byte, changed bool, err error) {
	l, err := scanManifest(data)
	if err != nil {
		if errors.GetCode(err) != "" {
			return nil, false, err
		}
		return nil, false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}

	var reps []replacement
	next := u.Target()
	if l.version == nil {
		if u.VersionChanged() {
			return nil, false, errors.New(errors.ErrCodeInvalidManifest, "%s has no version field", path)
		}
	} else if cur, err := unquote(data, *l.version); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read version in %s", path)
	} else if cur != next {
		if v, err := semver.Parse(cur); err != nil || !v.Equal(u.CurrentVersion) {
			return nil, false, errors.New(errors.ErrCodeInvalidManifest,
				"%s declares version %q, expected %q", path, cur, u.CurrentVersion.String())
		}
		reps = append(reps, replacement{*l.version, quote(next)})
	}

	for _, du := range u.DependencyUpdates {
		section := du.Type.Section()
		s, ok := l.sections[section][du.Name]
		if !ok {
			return nil, false, errors.New(errors.ErrCodeInvalidManifest, "%s does not declare %s in %s", path, du.Name, section)
		}
		cur, err := unquote(data, s)
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s.%s in %s", section, du.Name, path)
		}
		switch cur {
		case du.NewSpec:
		case du.OldSpec:
			reps = append(reps, replacement{s, quote(du.NewSpec)})
		default:
			return nil, false, errors.New(errors.ErrCodeInvalidManifest,
				"%s declares %s %q in %s, expected %q", path, du.Name, cur, section, du.OldSpec)
		}
	}

	if len(reps) == 0 {
		return data, false, nil
	}
	slices.SortFunc(reps, func(a, b replacement) int { return a.start - b.start })

	var buf bytes.Buffer
	buf.Grow(len(data))
	last := 0
	for _, r := range reps {
		buf.Write(data[last:r.start])
		buf.Write(r.value)
		last = r.end
	}
	buf.Write(data[last:])
	return buf.Bytes(), true, nil
}
