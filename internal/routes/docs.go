package routes

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CounselBack/internal/config"
)

//go:embed openapi.yaml
var openAPISpec []byte

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    :root { color-scheme: light; --ink: #1d2433; --soft: #5b6475; --brand: #3b5bdb; --line: #dde1ea; }
    body { margin: 0; font-family: system-ui, sans-serif; color: var(--ink); background: #f4f6fb; }
    main { max-width: 960px; margin: 0 auto; padding: 40px 20px; }
    header { margin-bottom: 24px; }
    header h1 { margin: 0 0 8px; font-size: 2rem; }
    header p { margin: 0; color: var(--soft); line-height: 1.5; }
    nav { margin-top: 16px; display: flex; gap: 10px; }
    nav a { padding: 8px 14px; border-radius: 6px; border: 1px solid var(--brand); color: var(--brand); text-decoration: none; }
    dl { display: grid; grid-template-columns: max-content 1fr; gap: 6px 16px; margin: 0 0 24px; }
    dt { color: var(--soft); }
    dd { margin: 0; }
    pre { margin: 0; padding: 16px; overflow: auto; border: 1px solid var(--line); border-radius: 8px; background: #fff; font-size: 0.9rem; }
  </style>
</head>
<body>
  <main>
    <header>
      <h1>{{ .Title }}</h1>
      <p>Appointments, payments, session notes and counselor availability. Point any OpenAPI viewer at the document below. This page is only served in development.</p>
      <nav>
        <a href="/docs/openapi.yaml">openapi.yaml</a>
        <a href="/docs/openapi.yaml" download="openapi.yaml">Download</a>
      </nav>
    </header>
    <dl>
      <dt>Spec path</dt><dd>/docs/openapi.yaml</dd>
      <dt>Loaded</dt><dd>{{ .LoadedAt }}</dd>
    </dl>
    <pre>{{ .Spec }}</pre>
  </main>
</body>
</html>
`

type docsPageData struct {
	Title    string
	LoadedAt string
	Spec     string
}

func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	spec := openAPISpec
	if len(spec) == 0 {
		return fmt.Errorf("openapi spec is empty")
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:    "CounselBack API Docs",
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
		Spec:     string(spec),
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}

		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).Send(spec)
	})

	return nil
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("Cross-Origin-Opener-Policy", "same-origin")
	c.Set("Cross-Origin-Embedder-Policy", "require-corp")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
