package github

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/ternarybob/docugen/internal/errs"
)

// FetchArchive downloads the tarball for owner/repo at the default branch
// and extracts it under destDir, adapted from the teacher's ListFiles/
// GetFileContent pair but using the archive-link endpoint for a single
// shallow snapshot instead of per-file API calls (spec.md §4.5 S1 Fetch:
// "one shallow copy, no full git history").
func (c *Connector) FetchArchive(ctx context.Context, owner, repo string, destDir string) (branch, revision string, err error) {
	repoInfo, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", "", errs.Wrap(errs.KindRepoNotFound, fmt.Sprintf("fetching repo metadata for %s/%s", owner, repo), err)
	}
	branch = repoInfo.GetDefaultBranch()

	commit, _, err := c.client.Repositories.GetCommit(ctx, owner, repo, branch, nil)
	if err != nil {
		return "", "", errs.Wrap(errs.KindRepoNotFound, "resolving branch head commit", err)
	}
	revision = commit.GetSHA()

	archiveURL, _, err := c.client.Repositories.GetArchiveLink(ctx, owner, repo, github.Tarball, &github.RepositoryContentGetOptions{Ref: branch}, 3)
	if err != nil {
		return "", "", errs.Wrap(errs.KindRepoNotFound, "resolving archive link", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL.String(), nil)
	if err != nil {
		return "", "", errs.Wrap(errs.KindInternal, "building archive download request", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		// A transport failure (connection refused, DNS failure) is distinct
		// from a request that reached the server and timed out.
		return "", "", errs.Wrap(errs.KindNetwork, "downloading repo archive", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", errs.New(errs.KindRepoNotFound, fmt.Sprintf("archive download returned status %d", resp.StatusCode))
	}

	if err := extractTarGz(resp.Body, destDir); err != nil {
		return "", "", errs.Wrap(errs.KindInternal, "extracting repo archive", err)
	}

	return branch, revision, nil
}

// extractTarGz writes a GitHub codeload tarball into destDir, stripping the
// single top-level "<repo>-<sha>/" directory GitHub always wraps archives
// in.
func extractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var stripPrefix string

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name := header.Name
		if stripPrefix == "" {
			if idx := strings.Index(name, "/"); idx >= 0 {
				stripPrefix = name[:idx+1]
			}
		}
		rel := strings.TrimPrefix(name, stripPrefix)
		if rel == "" {
			continue
		}

		target := filepath.Join(destDir, rel)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("tar entry escapes destination: %s", name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}

	return nil
}

// FileChange is one file to commit onto the publish branch.
type FileChange struct {
	Path    string
	Content string
}

// CreatePullRequest commits changes onto a new branch and opens a pull
// request carrying the generated documentation, used by the S5 Publish
// stage for the docs-plus-comments variant when the caller has write
// access (spec.md §4.5 S5).
func (c *Connector) CreatePullRequest(ctx context.Context, owner, repo, baseBranch string, changes []FileChange, title, body string) (string, error) {
	baseRef, _, err := c.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+baseBranch)
	if err != nil {
		return "", errs.Wrap(errs.KindPublishConflict, "resolving base branch ref", err)
	}

	branchName := fmt.Sprintf("docugen/%d", time.Now().UnixNano())
	newRef := &github.Reference{
		Ref:    github.String("refs/heads/" + branchName),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	}
	if _, _, err := c.client.Git.CreateRef(ctx, owner, repo, newRef); err != nil {
		return "", errs.Wrap(errs.KindPublishConflict, "creating publish branch", err)
	}

	for _, change := range changes {
		opts := &github.RepositoryContentFileOptions{
			Message: github.String("docs: " + title),
			Content: []byte(change.Content),
			Branch:  github.String(branchName),
		}

		existing, _, _, getErr := c.client.Repositories.GetContents(ctx, owner, repo, change.Path,
			&github.RepositoryContentGetOptions{Ref: branchName})
		if getErr == nil && existing != nil {
			opts.SHA = existing.SHA
			if _, _, err := c.client.Repositories.UpdateFile(ctx, owner, repo, change.Path, opts); err != nil {
				return "", errs.Wrap(errs.KindPublishConflict, "updating file "+change.Path, err)
			}
			continue
		}
		if _, _, err := c.client.Repositories.CreateFile(ctx, owner, repo, change.Path, opts); err != nil {
			return "", errs.Wrap(errs.KindPublishConflict, "creating file "+change.Path, err)
		}
	}

	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branchName),
		Base:  github.String(baseBranch),
		Body:  github.String(body),
	})
	if err != nil {
		return "", errs.Wrap(errs.KindPublishConflict, "opening pull request", err)
	}

	return pr.GetHTMLURL(), nil
}
