package sqlinline

// Blank tokens count as missing so the worker falls back to synthetic output.
const QSelectIntegrationToken = `--sql 3e51c0a4-9b27-4d6e-8f13-c27a5d9e4b60
select token
from integration_tokens
where provider = $1::text
  and btrim(token) <> ''
order by updated_at desc
limit 1;
`

// Properties are merged so rotating a key keeps metadata written by other tools.
const QUpsertIntegrationToken = `--sql b84d2f17-6c05-4a9e-a3d1-5f0e7c2b9a84
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = integration_tokens.properties || excluded.properties,
    updated_at = now();
`
