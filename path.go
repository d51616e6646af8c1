package zenmill

import "strings"

// normalizePath applies POSIX-style normalization to p: "." segments collapse,
// ".." segments resolve against preceding segments, and whether p was rooted
// (leading "/") is preserved in the returned rooted flag.
func normalizePath(p string) (result string, rooted bool) {
	rooted = strings.HasPrefix(p, "/")

	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))

	for _, seg := range segs {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !rooted {
				out = append(out, "..")
			}
			// A rooted path that ascends past its own root simply stays at root;
			// the caller (localPath) is responsible for rejecting "../" escapes
			// for relative resolution, where rooted is false.
		default:
			out = append(out, seg)
		}
	}

	return strings.Join(out, "/"), rooted
}

// dirname returns the directory portion of a logical path, the way path.Dir does,
// but without collapsing to "." for a bare filename: it returns "" instead, and
// localPath then resolves file on its own rather than joining it to "".
func dirname(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// localPath implements §4.2's local_path operation: if file begins with "/", it is
// normalized and returned with leading slashes stripped, ignoring parentFile
// entirely. Otherwise it is resolved relative to the directory of parentFile.
//
// Per §3 invariant 2, a result that would ascend above the logical root (i.e.
// normalizes to a path starting with "../") is rejected with OutOfScope.
func localPath(parentFile, file string) (string, error) {
	var joined string
	if strings.HasPrefix(file, "/") {
		joined = file
	} else if dir := dirname(parentFile); dir != "" {
		joined = dir + "/" + file
	} else {
		// parentFile sits at the root: join nothing, so the result stays
		// relative and a leading ".." is still caught below.
		joined = file
	}

	norm, rooted := normalizePath(joined)
	norm = strings.TrimLeft(norm, "/")

	if !rooted && (norm == ".." || strings.HasPrefix(norm, "../")) {
		return "", &OutOfScope{Path: file}
	}

	return norm, nil
}
