// Query Agent - Agentic LinkedIn Search Query Generation
//
// queryagent generates, scores, and executes LinkedIn prospecting queries
// with an LLM in the loop. A pipeline run generates candidate queries from
// a persona and seed query, filters them through two scoring gates (a
// pre-execution quality score and a sampled-results validation score),
// executes the survivors against a search backend, and aggregates the
// results into a deduplicated set keyed by URL. Rounds feed the best
// scoring queries back into the next generation prompt.
//
// # Packages
//
//   - pipeline: the stage state machine and the orchestrator driving it,
//     with pause/resume/stop, progress reporting, and session persistence
//   - llm: LLM client with retry, token accounting, batch scoring under a
//     concurrency limit, and cooperative cancellation
//   - prompt: the generation and scoring prompt builders
//   - search: the search backend contract, personas, and typed results
//   - aggregate: URL-keyed result deduplication with source-query tracking
//   - store: session persistence (memory, Redis, SQLite, PostgreSQL)
//   - config: YAML configuration with environment overrides
//   - log: the logging facade shared by all packages
//
// # Quick Start
//
//	backend, _ := llm.NewOpenRouterBackend(llm.OpenRouterOptions{
//		APIKey: os.Getenv("OPENROUTER_API_KEY"),
//	})
//	client, _ := llm.NewClient(llm.ClientOptions{Backend: backend, Model: "openai/gpt-4o-mini"})
//	searcher, _ := search.NewHTTPClient(search.HTTPClientOptions{
//		APIKey:  os.Getenv("QUERYAGENT_SEARCH_API_KEY"),
//		BaseURL: "https://search.example.com",
//	})
//
//	orch, _ := pipeline.NewOrchestrator(pipeline.Config{
//		Persona: &search.Persona{
//			JobTitles:       []string{"VP Engineering"},
//			SeniorityLevels: []string{"VP"},
//			Industries:      []string{"SaaS"},
//		},
//		SeedQuery: `site:linkedin.com/in "VP Engineering" SaaS`,
//		MaxRounds: 2,
//	}, client, searcher)
//
//	if err := orch.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//	for _, r := range orch.Results() {
//		fmt.Println(r.URL, r.SourceQueries)
//	}
//
// See the examples directory for complete programs.
package queryagent
