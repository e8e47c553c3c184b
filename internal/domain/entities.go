// Package domain defines the core business entities and interfaces for combine-prs.
package domain

// Candidate is an open pull request authored by the configured bot that
// targets the base branch. Candidates are fetched fresh on every run.
type Candidate struct {
	// Number is the pull request number.
	Number int

	// Title is the human-readable pull request title.
	Title string

	// HeadSHA is the commit the pull request head points at.
	HeadSHA string

	// HeadRef is the branch name of the pull request head.
	HeadRef string

	// URL is the canonical web link of the pull request.
	URL string

	// Author is the login of the pull request author.
	Author string
}

// Outcome classifies what happened to a single candidate during reconciliation.
type Outcome int

const (
	// OutcomeCombined means the candidate commit was replayed onto the working branch.
	OutcomeCombined Outcome = iota

	// OutcomeFailed means the replay conflicted and the candidate was excluded.
	OutcomeFailed

	// OutcomeOmitted means the candidate carried no change the branch does not already have.
	OutcomeOmitted
)

// String returns the lower-case outcome name used in log fields.
func (o Outcome) String() string {
	switch o {
	case OutcomeCombined:
		return "combined"
	case OutcomeFailed:
		return "failed"
	case OutcomeOmitted:
		return "omitted"
	default:
		return "unknown"
	}
}

// OutcomeEntry is the reported form of a classified candidate.
type OutcomeEntry struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
}

// NewOutcomeEntry builds the reported form of a candidate.
func NewOutcomeEntry(c Candidate) OutcomeEntry {
	return OutcomeEntry{
		Number: c.Number,
		Title:  c.Title,
		URL:    c.URL,
	}
}

// Outcomes partitions the candidates of one run into three disjoint lists.
// The zero value is ready to use.
type Outcomes struct {
	Combined []OutcomeEntry
	Failed   []OutcomeEntry
	Omitted  []OutcomeEntry
}

// Add records candidate c under outcome. An unknown outcome is ignored.
func (o *Outcomes) Add(c Candidate, outcome Outcome) {
	entry := NewOutcomeEntry(c)
	switch outcome {
	case OutcomeCombined:
		o.Combined = append(o.Combined, entry)
	case OutcomeFailed:
		o.Failed = append(o.Failed, entry)
	case OutcomeOmitted:
		o.Omitted = append(o.Omitted, entry)
	}
}

// Total returns the number of classified candidates.
func (o *Outcomes) Total() int {
	return len(o.Combined) + len(o.Failed) + len(o.Omitted)
}

// PullRequest is a pull request on the hosting platform, as reported in pr_combine.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	APIURL  string `json:"url"`
	HeadRef string `json:"head_ref"`
	BaseRef string `json:"base_ref"`
}

// NewPullRequest holds the fields required to open a pull request.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// Report is the structured artifact written at the end of a run.
type Report struct {
	CombinedPRs []OutcomeEntry `json:"combined_prs"`
	FailedPRs   []OutcomeEntry `json:"failed_prs"`
	OmittedPRs  []OutcomeEntry `json:"omitted_prs"`

	// PRCombine is the combined pull request, or nil when none was created.
	PRCombine *PullRequest `json:"pr_combine"`

	Branch string `json:"branch"`
	Base   string `json:"base"`
}

// NewReport builds a report from the outcomes of a run.
// The outcome lists are always non-nil so they serialize as arrays.
func NewReport(outcomes Outcomes, pr *PullRequest, branch, base string) *Report {
	return &Report{
		CombinedPRs: nonNil(outcomes.Combined),
		FailedPRs:   nonNil(outcomes.Failed),
		OmittedPRs:  nonNil(outcomes.Omitted),
		PRCombine:   pr,
		Branch:      branch,
		Base:        base,
	}
}

func nonNil(entries []OutcomeEntry) []OutcomeEntry {
	if entries == nil {
		return []OutcomeEntry{}
	}
	return entries
}

// CombineInput carries the per-run parameters of a combination.
type CombineInput struct {
	// Owner and Repo identify the repository on the hosting platform.
	Owner string
	Repo  string

	// BaseBranch is the branch candidates target and the fresh working branch starts from.
	BaseBranch string

	// CombineBranch is the working branch that accumulates replayed candidates.
	CombineBranch string

	// Author filters candidates by pull request author login.
	Author string

	// GitUserName and GitUserEmail are the advisory committer identity.
	GitUserName  string
	GitUserEmail string
}

// CombineOutput is the result of a completed combination run.
type CombineOutput struct {
	Outcomes Outcomes

	// Pushed reports whether the working branch was pushed to the remote.
	Pushed bool

	// PullRequest is the combined pull request, nil when none was created or reused.
	PullRequest *PullRequest
}

// Default values for the run parameters.
const (
	DefaultBaseBranch    = "main"
	DefaultCombineBranch = "combine-dependabot"
	DefaultAuthor        = "dependabot[bot]"
	DefaultGitUserName   = "github-actions"
	DefaultGitUserEmail  = "github-actions@users.noreply.github.com"
)
