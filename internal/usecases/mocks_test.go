package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// mockLogger implements the Logger interface for testing.
// It records warning messages so advisory paths can be asserted.
type mockLogger struct {
	warnings []string
}

func (m *mockLogger) Info(_ context.Context, _ string, _ map[string]interface{})  {}
func (m *mockLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (m *mockLogger) Warn(_ context.Context, msg string, _ map[string]interface{}) {
	m.warnings = append(m.warnings, msg)
}
func (m *mockLogger) Error(_ context.Context, _ string, _ error, _ map[string]interface{}) {}

// mockRepository implements domain.Repository as a tiny in-memory branch.
// Replaying a commit moves the tip to "<tip>+<sha>" and makes sha an ancestor.
type mockRepository struct {
	tip string

	// ancestors holds commits reachable from the tip.
	ancestors map[string]bool
	// local holds commits present in the object database.
	local map[string]bool
	// pullHeads maps pull request numbers to the commit FetchPullHead brings in.
	pullHeads map[int]string
	// empty holds commits with no diff against their parent.
	empty map[string]bool
	// conflicts holds commits whose cherry-pick fails.
	conflicts map[string]bool
	// dropOnReplay holds commits the cherry-pick drops as empty.
	dropOnReplay map[string]bool

	remoteBranch   bool
	remoteBaseRef  bool
	dirty          bool
	upstream       string
	ahead          int
	identityErr    error
	fetchErr       error
	fetchPullErr   error
	resetErr       error
	ancestorErr    error
	pickErr        error
	pushErr        error
	pushedBranches []string
	calls          []string
	remoteTip      string
	startTips      map[string]string
	unmergedPick   bool
}

func newMockRepository(tip string) *mockRepository {
	return &mockRepository{
		tip:          tip,
		ancestors:    map[string]bool{tip: true},
		local:        map[string]bool{},
		pullHeads:    map[int]string{},
		empty:        map[string]bool{},
		conflicts:    map[string]bool{},
		dropOnReplay: map[string]bool{},
		startTips:    map[string]string{},
	}
}

// withCommits marks shas as present locally.
func (m *mockRepository) withCommits(shas ...string) *mockRepository {
	for _, sha := range shas {
		m.local[sha] = true
	}
	return m
}

func (m *mockRepository) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockRepository) called(prefix string) bool {
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (m *mockRepository) ConfigureIdentity(_ context.Context, name, email string) error {
	m.record("config %s %s", name, email)
	return m.identityErr
}

func (m *mockRepository) Fetch(_ context.Context) error {
	m.record("fetch")
	return m.fetchErr
}

func (m *mockRepository) FetchPullHead(_ context.Context, number int) error {
	m.record("fetch-pull %d", number)
	if m.fetchPullErr != nil {
		return m.fetchPullErr
	}
	if sha, ok := m.pullHeads[number]; ok {
		m.local[sha] = true
	}
	return nil
}

func (m *mockRepository) RemoteBranchExists(_ context.Context, branch string) (bool, error) {
	m.record("ls-remote %s", branch)
	return m.remoteBranch, nil
}

func (m *mockRepository) RefExists(_ context.Context, ref string) (bool, error) {
	m.record("ref-exists %s", ref)
	return m.remoteBaseRef, nil
}

func (m *mockRepository) Checkout(_ context.Context, branch string) error {
	m.record("checkout %s", branch)
	return nil
}

func (m *mockRepository) CreateBranch(_ context.Context, branch, start string) error {
	m.record("create %s %s", branch, start)
	if tip, ok := m.startTips[start]; ok {
		m.tip = tip
	}
	return nil
}

func (m *mockRepository) ResetHard(_ context.Context, ref string) error {
	m.record("reset %s", ref)
	if m.resetErr != nil {
		return m.resetErr
	}
	m.unmergedPick = false
	if strings.HasPrefix(ref, "origin/") {
		if m.remoteTip != "" {
			m.tip = m.remoteTip
		}
		return nil
	}
	m.tip = ref
	return nil
}

func (m *mockRepository) HeadSHA(_ context.Context) (string, error) {
	return m.tip, nil
}

func (m *mockRepository) HasCommit(_ context.Context, sha string) (bool, error) {
	return m.local[sha] || m.ancestors[sha], nil
}

func (m *mockRepository) IsAncestor(_ context.Context, sha string) (bool, error) {
	if m.ancestorErr != nil {
		return false, m.ancestorErr
	}
	return m.ancestors[sha], nil
}

func (m *mockRepository) CommitIsEmpty(_ context.Context, sha string) (bool, error) {
	return m.empty[sha], nil
}

func (m *mockRepository) CherryPick(_ context.Context, sha string) error {
	m.record("cherry-pick %s", sha)
	if m.conflicts[sha] {
		m.unmergedPick = true
		m.tip += "~conflict"
		return fmt.Errorf("%w: %s: CONFLICT (modify/delete)", domain.ErrCherryPickConflict, sha)
	}
	if m.pickErr != nil {
		return m.pickErr
	}
	if m.dropOnReplay[sha] {
		return nil
	}
	m.tip = m.tip + "+" + sha
	m.ancestors[sha] = true
	m.ancestors[m.tip] = true
	m.ahead++
	return nil
}

func (m *mockRepository) SkipCherryPick(_ context.Context) error {
	m.record("cherry-pick-skip")
	return nil
}

func (m *mockRepository) WorkingTreeDirty(_ context.Context) (bool, error) {
	return m.dirty || m.unmergedPick, nil
}

func (m *mockRepository) Upstream(_ context.Context) (string, bool, error) {
	return m.upstream, m.upstream != "", nil
}

func (m *mockRepository) AheadCount(_ context.Context, _ string) (int, error) {
	return m.ahead, nil
}

func (m *mockRepository) ForcePush(_ context.Context, branch string) error {
	m.record("push %s", branch)
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushedBranches = append(m.pushedBranches, branch)
	m.upstream = "origin/" + branch
	m.remoteTip = m.tip
	m.remoteBranch = true
	m.ahead = 0
	return nil
}

// mockPullRequestService implements domain.PullRequestService for testing.
type mockPullRequestService struct {
	candidates []domain.Candidate
	listErr    error
	existing   *domain.PullRequest
	findErr    error
	createErr  error
	created    []domain.NewPullRequest
	findHeads  []string
	listCalls  int
	nextNumber int
}

func (m *mockPullRequestService) ListCandidates(_ context.Context, _, _, _, _ string) ([]domain.Candidate, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.candidates, nil
}

func (m *mockPullRequestService) FindOpenPullRequest(_ context.Context, _, _, head, _ string) (*domain.PullRequest, error) {
	m.findHeads = append(m.findHeads, head)
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.existing, nil
}

func (m *mockPullRequestService) CreatePullRequest(_ context.Context, _, _ string, pr domain.NewPullRequest) (*domain.PullRequest, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, pr)
	m.nextNumber++
	created := &domain.PullRequest{
		Number:  100 + m.nextNumber,
		Title:   pr.Title,
		Body:    pr.Body,
		State:   "open",
		HeadRef: pr.Head,
		BaseRef: pr.Base,
	}
	// Later lookups see the pull request that was just opened.
	m.existing = created
	return created, nil
}

func candidate(number int, sha string) domain.Candidate {
	return domain.Candidate{
		Number:  number,
		Title:   fmt.Sprintf("Bump dep-%d", number),
		HeadSHA: sha,
		URL:     fmt.Sprintf("https://github.com/octo-org/app/pull/%d", number),
		Author:  domain.DefaultAuthor,
	}
}

func testInput() domain.CombineInput {
	return domain.CombineInput{
		Owner:         "octo-org",
		Repo:          "app",
		BaseBranch:    domain.DefaultBaseBranch,
		CombineBranch: domain.DefaultCombineBranch,
		Author:        domain.DefaultAuthor,
		GitUserName:   domain.DefaultGitUserName,
		GitUserEmail:  domain.DefaultGitUserEmail,
	}
}
