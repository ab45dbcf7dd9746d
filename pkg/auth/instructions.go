package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide explains where to get a Mapbox access token
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "🔑 MAPBOX ACCESS TOKEN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Satellite tiles are served by the Mapbox Static Images API, which")
	fmt.Fprintln(w, "needs an access token on every request.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   1. Sign in at https://account.mapbox.com")
	fmt.Fprintln(w, "   2. Open 'Tokens' and copy the default public token (pk....)")
	fmt.Fprintln(w, "      or create one with the styles:tiles scope")
	fmt.Fprintln(w, "   3. Paste it at the prompt, or export MAPBOX_ACCESS_TOKEN")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "💡 Profiles let you keep several tokens: tilefetch auth login work")
	fmt.Fprintln(w, "   then tilefetch fetch --profile work")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "⚠️  Requests count against the token's monthly quota.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
