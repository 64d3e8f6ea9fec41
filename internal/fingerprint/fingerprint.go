// Package fingerprint hashes and persists the inputs to a batch compile so
// BatchDriver can skip a redundant invocation, grounded on the reference
// CLI's versions.WriteMeta pattern of a TOML record written beside the
// artifact it describes.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// buildbotPrefix marks depfile paths from the old buildbot layout that are
// never present locally and must be filtered out before hashing.
const buildbotPrefix = "/b/build/slave/"

// Key identifies the inputs a fingerprint is computed over.
type Key struct {
	EntryPoint              string
	TrackWidgetCreation     bool
	LinkPlatformKernelIn    bool
	Inputs                  map[string]string // logical name -> path, e.g. {"mainPath": ...}
	DepFilePath             string
}

// Record is the on-disk fingerprint, stored as TOML at
// "<depFilePath>.fingerprint".
type Record struct {
	Hash       string            `toml:"hash"`
	Properties map[string]string `toml:"properties"`
	Inputs     map[string]string `toml:"inputs"`
}

// Store hashes/persists/compares fingerprints on disk.
type Store struct{}

// path returns the sidecar fingerprint file for a depfile.
func (Store) path(depFilePath string) string {
	return depFilePath + ".fingerprint"
}

// Compute derives the stable hash for key, reading the depfile's own listed
// input paths (filtering out buildbot-only paths) and folding the SHA-256 of
// each input file's contents into the digest alongside key's own fields.
func (s Store) Compute(key Key) (Record, error) {
	depInputs, err := readDepfileInputs(key.DepFilePath)
	if err != nil {
		return Record{}, fmt.Errorf("reading depfile %s: %w", key.DepFilePath, err)
	}

	properties := map[string]string{
		"entryPoint":           key.EntryPoint,
		"trackWidgetCreation":  fmt.Sprintf("%t", key.TrackWidgetCreation),
		"linkPlatformKernelIn": fmt.Sprintf("%t", key.LinkPlatformKernelIn),
	}

	allInputs := map[string]string{}
	for name, path := range key.Inputs {
		allInputs[name] = path
	}
	for _, path := range depInputs {
		allInputs["dep:"+path] = path
	}

	h := sha256.New()
	writeCanonical(h, properties)
	writeCanonical(h, allInputs)
	writeFileDigests(h, allInputs)

	return Record{
		Hash:       hex.EncodeToString(h.Sum(nil)),
		Properties: properties,
		Inputs:     allInputs,
	}, nil
}

// Matches reports whether the persisted fingerprint for depFilePath is
// present and equal to the freshly computed one for key.
func (s Store) Matches(key Key) (bool, error) {
	want, err := s.Compute(key)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(s.path(key.DepFilePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading fingerprint: %w", err)
	}

	var got Record
	if err := toml.Unmarshal(data, &got); err != nil {
		return false, nil // malformed fingerprint file is treated as a miss
	}
	return got.Hash == want.Hash, nil
}

// Persist computes and writes the fingerprint for key.
func (s Store) Persist(key Key) error {
	rec, err := s.Compute(key)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling fingerprint: %w", err)
	}
	return os.WriteFile(s.path(key.DepFilePath), data, 0o644)
}

func readDepfileInputs(depFilePath string) ([]string, error) {
	if depFilePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(depFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	// Make-style depfile: "output: input1 input2 \\\n input3 ...".
	content := strings.ReplaceAll(string(data), "\\\n", " ")
	idx := strings.Index(content, ":")
	if idx < 0 {
		return nil, nil
	}
	fields := strings.Fields(content[idx+1:])

	var inputs []string
	for _, f := range fields {
		if strings.HasPrefix(f, buildbotPrefix) {
			continue
		}
		inputs = append(inputs, f)
	}
	return inputs, nil
}

func writeCanonical(h io.Writer, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, m[k])
	}
}

func writeFileDigests(h io.Writer, paths map[string]string) {
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := paths[k]
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(h, "missing:%s\n", path)
			continue
		}
		sum := sha256.Sum256(data)
		fmt.Fprintf(h, "%s:%s\n", path, hex.EncodeToString(sum[:]))
	}
}
