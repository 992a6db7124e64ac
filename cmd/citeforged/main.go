// Command citeforged runs one research session end to end against
// real or stub collaborators and prints the resulting report to
// stdout. It exists to demonstrate orchestrator.Run as a callable
// library operation; a long-running service would replace the stub
// source/PDF fetchers below with live arxiv/OpenAlex/PDF clients and
// keep everything else unchanged.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"

	"github.com/researchmesh/citeforge/internal/cache"
	"github.com/researchmesh/citeforge/internal/config"
	"github.com/researchmesh/citeforge/internal/llm"
	"github.com/researchmesh/citeforge/internal/model"
	"github.com/researchmesh/citeforge/internal/orchestrator"
	"github.com/researchmesh/citeforge/internal/pdfload"
	"github.com/researchmesh/citeforge/internal/repository"
	"github.com/researchmesh/citeforge/internal/sources"
)

func main() {
	topic := flag.String("topic", "", "research topic to synthesize a report for")
	language := flag.String("language", "en", "output report language")
	openaiModel := flag.String("openai-model", "gpt-4o-mini", "OpenAI model used when OPENAI_API_KEY is set")
	flag.Parse()

	if *topic == "" {
		log.Fatal("citeforged: -topic is required")
	}

	capability, err := buildCapability(*openaiModel)
	if err != nil {
		log.Fatalf("citeforged: %v", err)
	}

	opts := config.Defaults()
	opts.OutputLanguage = *language

	store := cache.New()
	repo := repository.NewInMemory()
	orch := orchestrator.New(orchestrator.Deps{
		Repo:        repo,
		Checkpoints: repository.NewCheckpointStore(store),
		LLM:         capability,
		Clients:     []sources.Client{sources.NewSourceA(stubRawFetch), sources.NewSourceB(stubRawFetch, "")},
		Loader:      pdfload.NewLoader(httpFetch, stubParsePDF, store),
		Embedder:    hashEmbedder{},
		SafeHosts:   map[string]struct{}{"arxiv.org": {}},
		Options:     opts,
	})

	ctx := context.Background()
	session, runErr := orch.Run(ctx, *topic)
	if session == nil {
		log.Fatalf("citeforged: run failed before a session was created: %v", runErr)
	}

	log.Printf("citeforged: session %s terminated in phase %s", session.ID, session.Phase)
	if session.Termination != nil {
		log.Printf("citeforged: cause=%s reason=%s", session.Termination.Cause, session.Termination.Reason)
	}
	if runErr != nil {
		log.Printf("citeforged: %v", runErr)
	}

	report, ok, err := repo.Sessions().GetReport(ctx, session.ID)
	if err != nil {
		log.Fatalf("citeforged: load report: %v", err)
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Println(report.Content)
}

// buildCapability wires a live provider when an API key is present in
// the environment, falling back to a fixed-response stub so the
// binary runs end to end without external credentials.
func buildCapability(openaiModel string) (llm.Capability, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return llm.NewOpenAICapability(key, openaiModel)
	}
	return stubCapability{}, nil
}

// stubCapability answers every prompt with an empty JSON array. The
// planner and claim generator parse it as an empty result, the screener
// degrades each paper to its fail-open default, and the evidence
// extractor and citation auditor, which expect a JSON object, treat it
// as a parse failure.
type stubCapability struct{}

func (stubCapability) Generate(_ context.Context, _ llm.Request) (string, error) { return "[]", nil }

func (stubCapability) GenerateStream(ctx context.Context, req llm.Request) func(func(string, error) bool) {
	return func(yield func(string, error) bool) {
		text, err := stubCapability{}.Generate(ctx, req)
		yield(text, err)
	}
}

func (stubCapability) CountTokens(text string) int { return (len(text) + 3) / 4 }

// stubRawFetch stands in for a real arxiv/OpenAlex HTTP client; wire
// format parsing for those backends is outside this pipeline's scope
// (spec §1), so the default binary returns no papers for any query.
func stubRawFetch(_ context.Context, _ string) ([]*model.Paper, error) {
	return nil, nil
}

// httpFetch performs the actual PDF download; byte-level PDF parsing
// itself stays injected (stubParsePDF) per the same out-of-scope
// boundary.
func httpFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// stubParsePDF stands in for real PDF text extraction.
func stubParsePDF(_ []byte) (*pdfload.Parsed, error) {
	return &pdfload.Parsed{Pages: []pdfload.PageText{{Text: ""}}}, nil
}

// hashEmbedder is a deterministic, dependency-free stand-in for a real
// embedding model (spec §1: the embedding model choice is an external
// collaborator): it hashes text into a fixed-length unit vector so
// identical cards cluster together and distinct cards do not, without
// calling out to a network service.
type hashEmbedder struct{}

const embedDims = 32

func (hashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, embedDims)
	var norm float64
	for i := range vec {
		vec[i] = float64(sum[i%len(sum)]) - 127.5
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec, nil
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}
