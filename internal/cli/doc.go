// Package cli provides Java discovery and command building for the BSL
// Language Server.
//
// # Discovery
//
// The Discoverer locates a Java runtime and checks that the language server
// jar exists:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    JavaPath: "",            // Optional explicit path
//	    JarPath:  "/opt/bsl/bsl-language-server.jar",
//	    Logger:   slog.Default(),
//	})
//	javaPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.JavaPath (if it contains a path separator)
//  2. $JAVA_HOME/bin/java
//  3. System PATH
//  4. Common installation directories
//
// # Command Building
//
// AnalyzeCommand, FormatCommand and SessionCommand produce the Command for
// each way the language server is launched:
//
//	cmd := cli.AnalyzeCommand(javaPath, options, "/workspaces/app/src", []string{"json"}, "ru")
package cli
