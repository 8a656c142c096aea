// Package action defines pipeline steps and the State they transform.
//
// A Step receives the shared State and returns entries to merge into it. Most
// steps are Actions, which hand the real work to an Executor:
//
//	summarize := action.New("summarize",
//	    action.ExecutorFunc(func(ctx context.Context, s action.State) (any, error) {
//	        notes, _ := action.Value[string](s, "notes")
//	        return llm.Summarize(ctx, action.Current(ctx).Personality(), notes)
//	    }),
//	    action.WithPersonality("terse technical editor"),
//	    action.WithOutputKey("task_output"),
//	)
//
// Small in-process transforms can use Func instead.
package action
