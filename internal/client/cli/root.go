package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/claimkeeper/internal/client/models"
)

func (a *App) getStatus() string {
	st := a.session.Status()
	s := fmt.Sprintf("%d file(s)", st.Files)
	if st.Submitted {
		s += " submitted"
	}
	if st.Metadata != models.TierAvailable || st.Blobs != models.TierAvailable {
		s += " degraded"
	}
	return fmt.Sprintf("(%s)", s)
}

// Root runs the REPL on the app's input until the user exits.
func (a *App) Root(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to claimkeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
