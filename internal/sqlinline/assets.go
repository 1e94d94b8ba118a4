package sqlinline

const QInsertGeneratedAsset = `--sql 96d9f2e2-9f0e-4a3a-a969-d5196e1bc859
insert into media_assets (
    id,
    account_id,
    kind,
    storage_key,
    url,
    mime,
    bytes,
    source,
    generated_content_id,
    created_at
)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::bigint, $8::text, $9::uuid, now());
`
