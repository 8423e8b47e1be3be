package registry

import (
	"fmt"
	"sync"
)

// Repo describes a named repository: where its records are served from and
// the key its payloads are signed with.
type Repo struct {
	// Name is the repository name as it appears in records and in
	// Dependency.Repository references.
	Name string

	// RepoURL serves the binary records and tarballs.
	RepoURL string

	// APIURL serves the JSON API. Empty for mirrors that only serve
	// records.
	APIURL string

	// PublicKey is the PEM-encoded RSA key used to verify signed
	// payloads. Verification is skipped when empty.
	PublicKey []byte
}

// DefaultRepository is the repository used when a dependency does not name
// one.
const DefaultRepository = "hexpm"

var (
	repos = make(map[string]Repo)
	mu    sync.RWMutex
)

func init() {
	RegisterRepo(Repo{
		Name:    DefaultRepository,
		RepoURL: "https://repo.hex.pm",
		APIURL:  "https://hex.pm/api",
	})
}

// RegisterRepo adds or replaces a repository configuration. Registering a
// private mirror under DefaultRepository redirects default lookups to it.
func RegisterRepo(r Repo) {
	mu.Lock()
	defer mu.Unlock()
	repos[r.Name] = r
}

// LookupRepo returns the configuration for a named repository. The empty
// name means DefaultRepository.
func LookupRepo(name string) (Repo, error) {
	if name == "" {
		name = DefaultRepository
	}
	mu.RLock()
	r, ok := repos[name]
	mu.RUnlock()
	if !ok {
		return Repo{}, fmt.Errorf("unknown repository: %s", name)
	}
	return r, nil
}

// Repositories returns the names of all registered repositories.
func Repositories() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	return names
}
