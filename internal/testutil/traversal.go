package testutil

import "runtime"

// PathTraversalCase is a hostile name as a mail store might carry it in a
// folder name or an attachment file name.
type PathTraversalCase struct{ Name, Path string }

// PathTraversalCases returns names that resolve outside the directory they
// are joined to. Drive and UNC forms are added on Windows.
func PathTraversalCases() []PathTraversalCase {
	cases := []PathTraversalCase{
		{"parent", ".."},
		{"parent attachment", "../invoice.pdf"},
		{"nested escape", "Inbox/../../.bashrc"},
		{"deep escape", "a/b/../../../../etc/passwd"},
		{"rooted", "/etc/passwd"},
	}
	if runtime.GOOS == "windows" {
		cases = append(cases,
			PathTraversalCase{"backslash escape", `..\..\autoexec.bat`},
			PathTraversalCase{"drive", `C:\Windows\win.ini`},
			PathTraversalCase{"drive relative", `C:invoice.pdf`},
			PathTraversalCase{"UNC", `\\server\share\invoice.pdf`},
		)
	}
	return cases
}
