package expand

import "github.com/home-lang/den/internal/globutil"

// globField performs pathname expansion for one already-split, unquoted
// field.
func globField(text string, env Env) ([]string, error) {
	if !globutil.HasMeta(text) {
		return []string{text}, nil
	}
	if env.OptFlag("noglob") {
		return []string{text}, nil
	}
	opts := globutil.Options{
		NullGlob: env.OptNamed("nullglob"),
		DotGlob:  env.OptNamed("dotglob"),
		GlobStar: env.OptNamed("globstar"),
	}
	return globutil.Expand(env.PWD(), text, opts)
}
