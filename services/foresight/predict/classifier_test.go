// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package predict

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/foresight/pkg/logging"
	"github.com/AleutianAI/foresight/services/foresight/framework"
	"github.com/AleutianAI/foresight/services/foresight/source"
)

func input(path, code string, tags ...framework.Tag) Input {
	fc := source.New(path, []byte(code), source.LanguageUnknown)
	set := framework.Detect(fc, "")
	if len(tags) > 0 {
		set = framework.NewSet(tags...)
	}
	return Input{File: fc, Frameworks: set}
}

func predictOnly(t *testing.T, in Input, patternID string) []PredictedError {
	t.Helper()
	var out []PredictedError
	for _, p := range NewClassifier().Predict(context.Background(), in) {
		if p.PatternID == patternID {
			out = append(out, p)
		}
	}
	return out
}

func TestScore(t *testing.T) {
	signals := []Signal{{"a", 0.3}, {"b", 0.5}}

	p, names := score(0.4, signals, map[string]bool{"a": true})
	assert.InDelta(t, 0.7, p, 1e-9)
	assert.Equal(t, []string{"a"}, names)

	p, _ = score(0.4, signals, map[string]bool{"a": true, "b": true})
	assert.Equal(t, 1.0, p, "clamped")

	p, names = score(0.4, signals, nil)
	assert.Equal(t, 0.4, p)
	assert.Empty(t, names)
}

// Canonical triggers carry every corroborating signal and must land in
// the 0.70 to 0.90 band.
func TestCanonicalTriggers(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		pattern  string
		want     float64
		wantType ErrorType
	}{
		{
			name:     "hydration",
			in:       input("app/page.tsx", "export default function Page() {\n  return <p>{Date.now()}</p>;\n}\n", framework.NextJS),
			pattern:  PatternHydration,
			want:     0.85,
			wantType: ErrorHydrationMismatch,
		},
		{
			name:     "undefined state",
			in:       input("app/user.tsx", "'use client';\nimport { useState } from 'react';\nexport default function User() {\n  const [user, setUser] = useState(null);\n  return <div>{user.profile.name}</div>;\n}\n", framework.NextJS),
			pattern:  PatternUndefinedState,
			want:     0.90,
			wantType: ErrorUndefinedAccess,
		},
		{
			name:     "async client component",
			in:       input("app/list.tsx", "'use client';\nexport default async function List() {\n  const items = await fetch('/api').then(r => r.json());\n  return <ul />;\n}\n", framework.NextJS),
			pattern:  PatternAsyncClient,
			want:     0.85,
			wantType: ErrorAsyncComponent,
		},
		{
			name:     "effect leak",
			in:       input("src/Width.tsx", "import { useEffect, useState } from 'react';\nexport function Width() {\n  const [w, setW] = useState(0);\n  useEffect(() => {\n    window.addEventListener('resize', () => setW(window.innerWidth));\n  }, []);\n  return <span>{w}</span>;\n}\n"),
			pattern:  PatternEffectLeak,
			want:     0.80,
			wantType: ErrorMemoryLeak,
		},
		{
			name:     "effect race",
			in:       input("src/Profile.tsx", "import { useEffect, useState } from 'react';\nexport function Profile({ id }) {\n  const [data, setData] = useState({});\n  useEffect(() => {\n    fetch('/api/users/' + id).then(r => r.json()).then(json => setData(json));\n  }, [id]);\n  return <p>{data.name}</p>;\n}\n"),
			pattern:  PatternEffectRace,
			want:     0.75,
			wantType: ErrorRaceCondition,
		},
		{
			name:     "effect loop",
			in:       input("src/Counter.tsx", "import { useEffect, useState } from 'react';\nexport function Counter() {\n  const [n, setN] = useState(0);\n  useEffect(() => {\n    setN(n + 1);\n  });\n  return <b>{n}</b>;\n}\n"),
			pattern:  PatternEffectLoop,
			want:     0.85,
			wantType: ErrorInfiniteLoop,
		},
		{
			name:     "env var in client bundle",
			in:       input("app/client.tsx", "'use client';\nexport function C() {\n  const key = process.env.STRIPE_SECRET;\n  const url = process.env.NEXT_PUBLIC_URL;\n  return <a href={url}>{key}</a>;\n}\n", framework.NextJS),
			pattern:  PatternEnvVar,
			want:     0.85,
			wantType: ErrorEnvVar,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := predictOnly(t, tt.in, tt.pattern)
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantType, got[0].ErrorType)
			assert.InDelta(t, tt.want, got[0].Probability, 1e-9)
			assert.GreaterOrEqual(t, got[0].Probability, 0.70)
			assert.LessOrEqual(t, got[0].Probability, 0.90)
			assert.NotEmpty(t, got[0].PreventionSuggestion)
			assert.Greater(t, got[0].Line, 0)
		})
	}
}

func TestUndefinedState_ExpectedText(t *testing.T) {
	in := input("app/user.tsx", "'use client';\nimport { useState } from 'react';\nexport default function User() {\n  const [user, setUser] = useState(null);\n  return <div>{user.profile.name}</div>;\n}\n", framework.NextJS)
	got := predictOnly(t, in, PatternUndefinedState)
	require.Len(t, got, 1)
	assert.Equal(t, "TypeError: Cannot read properties of null (reading 'profile')", got[0].ExpectedErrorText)
	assert.Equal(t, 5, got[0].Line)
}

func TestEffectLeak_CleanupLowersProbability(t *testing.T) {
	code := "import { useEffect } from 'react';\nexport function Width({ onResize }) {\n  useEffect(() => {\n    window.addEventListener('resize', onResize);\n    return () => window.removeEventListener('resize', onResize);\n  }, [onResize]);\n  return null;\n}\n"
	got := predictOnly(t, input("src/Width.tsx", code), PatternEffectLeak)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.40, got[0].Probability, 1e-9)
	assert.Empty(t, got[0].Signals)
}

func TestEffectLeak_VueOnMounted(t *testing.T) {
	code := "<script setup>\nimport { onMounted } from 'vue';\nonMounted(() => {\n  setInterval(tick, 1000);\n});\n</script>\n"
	got := predictOnly(t, input("src/Timer.vue", code), PatternEffectLeak)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.80, got[0].Probability, 1e-9)
	assert.Equal(t, 3, got[0].Line)
}

func TestAsyncClient_ServerComponentIsFine(t *testing.T) {
	in := input("app/page.tsx", "export default async function Page() {\n  const d = await fetch('/x');\n  return <p />;\n}\n", framework.NextJS)
	assert.Empty(t, predictOnly(t, in, PatternAsyncClient))
}

func TestUnresolvedImport(t *testing.T) {
	code := "import leftPad from 'left-pad';\nimport _ from 'lodash';\nimport fs from 'fs';\nimport x from 'lodahs';\n"

	unknown := input("src/a.ts", code)
	assert.Empty(t, predictOnly(t, unknown, PatternUnresolved), "no manifest means no verdict")

	known := input("src/a.ts", code)
	known.Packages = map[string]bool{"react": true, "lodash": true}
	got := predictOnly(t, known, PatternUnresolved)
	require.Len(t, got, 2)

	assert.Equal(t, 4, got[0].Line)
	assert.InDelta(t, 0.90, got[0].Probability, 1e-9)
	assert.Contains(t, got[0].Message, "did you mean 'lodash'")

	assert.Equal(t, 1, got[1].Line)
	assert.InDelta(t, 0.80, got[1].Probability, 1e-9)
	assert.Equal(t, PhaseBuild, got[1].Phase)
	assert.Equal(t, "Module not found: Can't resolve 'left-pad'", got[1].ExpectedErrorText)
}

func TestUnresolvedImport_Relative(t *testing.T) {
	in := input("src/a.ts", "import { pad } from './util';\nimport { gone } from './missing';\nimport { up } from '../lib/up';\n")
	in.Files = map[string]bool{"src/a.ts": true, "src/util.ts": true, "lib/up/index.js": true}

	got := predictOnly(t, in, PatternUnresolved)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)
	assert.Contains(t, got[0].Message, "./missing")
}

func TestEnvVar_UndefinedKey(t *testing.T) {
	in := input("app/api/route.ts", "export async function GET() {\n  return Response.json({ url: process.env.DATABASE_URL ?? 'x', env: process.env.NODE_ENV });\n}\n", framework.NextJS)
	assert.Empty(t, predictOnly(t, in, PatternEnvVar), "server code with unknown env keys")

	in.EnvKeys = map[string]bool{"OTHER": true}
	got := predictOnly(t, in, PatternEnvVar)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.50, got[0].Probability, 1e-9)
	assert.Contains(t, got[0].Message, "DATABASE_URL")
}

func TestPredict_FrameworkScoping(t *testing.T) {
	// Same nondeterministic render, but a plain React SPA never hydrates.
	in := input("src/Clock.tsx", "export function Clock() {\n  return <p>{Date.now()}</p>;\n}\n")
	assert.False(t, in.Frameworks.Has(framework.NextJS))
	assert.Empty(t, predictOnly(t, in, PatternHydration))
}

func TestPredict_Deterministic(t *testing.T) {
	code := "'use client';\nimport { useEffect, useState } from 'react';\nexport default function P() {\n  const [n, setN] = useState(0);\n  useEffect(() => { setN(n + 1); });\n  useEffect(() => { window.addEventListener('scroll', f); }, []);\n  return <p>{Math.random()}{process.env.SECRET}</p>;\n}\n"
	c := NewClassifier()
	first := c.Predict(context.Background(), input("app/p.tsx", code, framework.NextJS))
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Predict(context.Background(), input("app/p.tsx", code, framework.NextJS)))
	}
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Probability, first[i].Probability)
	}
}

func TestPredict_PatternPanicIsIsolated(t *testing.T) {
	capture := logging.NewCapture()
	boom := Pattern{ID: "boom", ErrorType: ErrorMemoryLeak, Base: 0.5, detect: func(*Input) []candidate { panic("bad pattern") }}
	ok := Pattern{ID: "ok", ErrorType: ErrorImport, Base: 0.5, detect: func(in *Input) []candidate {
		return []candidate{{line: 1, message: "fine"}}
	}}
	c := NewClassifier(WithPatterns([]Pattern{boom, ok}), WithLogger(capture.Logger()))

	got := c.Predict(context.Background(), input("src/a.ts", "x"))
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].PatternID)
	assert.Equal(t, 1, capture.Count(slog.LevelWarn, "prediction pattern panicked"))
}

func TestPredict_Options(t *testing.T) {
	in := input("src/a.ts", "import a from 'left-pad';\n")
	in.Packages = map[string]bool{}

	assert.Len(t, NewClassifier().Predict(context.Background(), in), 1)
	assert.Empty(t, NewClassifier(WithMinProbability(0.95)).Predict(context.Background(), in))
	assert.Empty(t, NewClassifier(WithErrorTypes(ErrorEnvVar)).Predict(context.Background(), in))
	assert.Len(t, NewClassifier(WithErrorTypes(ErrorImport)).Patterns(), 1)
}

func TestPredict_CapPerPattern(t *testing.T) {
	code := "export default function P() {\n  return <p>{Date.now()}{Date.now()}{Date.now()}{Date.now()}{Date.now()}{Date.now()}{Date.now()}</p>;\n}\n"
	got := predictOnly(t, input("app/page.tsx", code, framework.NextJS), PatternHydration)
	assert.Len(t, got, MaxPerPattern)
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 0, editDistance("react", "react"))
	assert.Equal(t, 1, editDistance("reat", "react"))
	assert.Equal(t, 2, editDistance("lodahs", "lodash"))
	assert.Equal(t, 3, editDistance("", "abc"))
}

func TestHydration_BrowserGlobalsInRender(t *testing.T) {
	page := "'use client';\nexport default function Page() {\n  const w = window.innerWidth;\n  return <div>{w}</div>;\n}\n"
	got := predictOnly(t, input("app/page.tsx", page, framework.NextJS), PatternHydration)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
	assert.Contains(t, got[0].Message, "window.innerWidth")
	assert.InDelta(t, 0.85, got[0].Probability, 1e-9)

	tests := []struct {
		name string
		path string
		code string
	}{
		{
			name: "typeof guard",
			path: "app/page.tsx",
			code: "'use client';\nexport default function Page() {\n  const w = typeof window !== 'undefined' ? window.innerWidth : 0;\n  return <div>{w}</div>;\n}\n",
		},
		{
			name: "guarded block",
			path: "app/page.tsx",
			code: "'use client';\nexport default function Page() {\n  let lang = 'en';\n  if (typeof navigator !== 'undefined') {\n    lang = navigator.language;\n  }\n  return <p>{lang}</p>;\n}\n",
		},
		{
			name: "event handler",
			path: "app/page.tsx",
			code: "'use client';\nexport default function Page() {\n  function handleClick() {\n    localStorage.setItem('seen', '1');\n  }\n  return <button onClick={() => window.scrollTo(0, 0)}>top</button>;\n}\n",
		},
		{
			name: "mount effect",
			path: "app/page.tsx",
			code: "'use client';\nimport { useEffect, useState } from 'react';\nexport default function Page() {\n  const [w, setW] = useState(0);\n  useEffect(() => {\n    setW(window.innerWidth);\n  }, []);\n  return <div>{w}</div>;\n}\n",
		},
		{
			name: "server component",
			path: "app/page.tsx",
			code: "export default function Page() {\n  const w = window.innerWidth;\n  return <div>{w}</div>;\n}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, predictOnly(t, input(tt.path, tt.code, framework.NextJS), PatternHydration))
		})
	}
}

func TestHydration_EffectBodiesAreNotRender(t *testing.T) {
	code := "'use client';\nimport { useEffect, useState } from 'react';\nexport default function Clock() {\n  const [n, setN] = useState(0);\n  useEffect(() => { setN(Date.now()); }, []);\n  return <p>{n}</p>;\n}\n"
	assert.Empty(t, predictOnly(t, input("app/clock.tsx", code, framework.NextJS), PatternHydration))

	vue := "<script setup>\nimport { onMounted, ref } from 'vue';\nconst now = ref(0);\nonMounted(() => {\n  now.value = Date.now();\n});\n</script>\n<template><p>{{ now }}</p></template>\n"
	assert.Empty(t, predictOnly(t, input("pages/clock.vue", vue, framework.Nuxt), PatternHydration))

	// A render read next to an effect still counts, without the mount signal.
	mixed := "'use client';\nimport { useEffect } from 'react';\nexport default function Clock() {\n  useEffect(() => { console.info(Date.now()); }, []);\n  return <p>{Math.random()}</p>;\n}\n"
	got := predictOnly(t, input("app/clock.tsx", mixed, framework.NextJS), PatternHydration)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Line)
	assert.InDelta(t, 0.70, got[0].Probability, 1e-9)
}

func TestEffectLoop_SelfReferentialDeps(t *testing.T) {
	code := "import { useEffect, useState } from 'react';\nexport function Counter() {\n  const [count, setCount] = useState(0);\n  useEffect(() => {\n    setCount(count + 1);\n  }, [count]);\n  return <b>{count}</b>;\n}\n"
	got := predictOnly(t, input("src/Counter.tsx", code), PatternEffectLoop)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Line)
	assert.InDelta(t, 0.85, got[0].Probability, 1e-9)
	assert.Contains(t, got[0].Message, "setCount")

	guarded := "import { useEffect, useState } from 'react';\nexport function Counter() {\n  const [count, setCount] = useState(0);\n  useEffect(() => {\n    if (count < 10) setCount(count + 1);\n  }, [count]);\n  return <b>{count}</b>;\n}\n"
	got = predictOnly(t, input("src/Counter.tsx", guarded), PatternEffectLoop)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.60, got[0].Probability, 1e-9)

	other := "import { useEffect, useState } from 'react';\nexport function Counter({ step }) {\n  const [count, setCount] = useState(0);\n  useEffect(() => {\n    setCount(step);\n  }, [step]);\n  return <b>{count}</b>;\n}\n"
	assert.Empty(t, predictOnly(t, input("src/Counter.tsx", other), PatternEffectLoop))
}
